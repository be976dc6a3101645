// Package exemplar holds the curated (natural-language, SQL) worked examples
// shared by the Retriever (which surfaces matching exemplars into the
// RetrievalBundle) and the PromptBuilder (which renders the best 2 into the
// prompt's examples section).
//
// Grounded on llm_prompt_builder_new.py's _initialize_example_queries: the
// two hardcoded QueryExample entries are carried over verbatim in content
// (the branch/manager LEFT JOIN and checking+savings intersection worked
// examples), re-expressed as a Go struct slice per SPEC_FULL.md §10.
package exemplar

// Example is one curated (question, SQL) pair with worked reasoning.
type Example struct {
	Question       string
	SQL            string
	Suggestion     string
	ReasoningSteps []string
	TablesUsed     []string
	KeyColumns     []string
	Conditions     []string
}

// Builtin is the fixed exemplar set the system ships with.
var Builtin = []Example{
	{
		Question: "List all branches and their managers' names. Include branches without a manager.",
		SQL: "SELECT b.name AS branch_name, e.name AS manager_name " +
			"FROM branches b " +
			"LEFT JOIN employees e ON b.manager_id = e.id AND e.position = 'Branch Manager' " +
			"ORDER BY b.name;",
		Suggestion: "This query retrieves all bank branches and their corresponding manager names, using a LEFT JOIN to include branches that don't have a manager assigned. Results are ordered by branch name for easy reading.",
		ReasoningSteps: []string{
			"1. Identify main entity: branches table (contains branch information)",
			"2. Need manager names: requires join with employees table",
			"3. Use LEFT JOIN to include branches without managers",
			"4. Filter for Branch Manager position in employees",
			"5. Order by branch name for readability",
		},
		TablesUsed: []string{"branches", "employees"},
		KeyColumns: []string{"branches.manager_id", "employees.id", "employees.position"},
		Conditions: []string{"e.position = 'Branch Manager'"},
	},
	{
		Question: "Find customers who have both checking and savings accounts.",
		SQL: "SELECT DISTINCT c.first_name || ' ' || c.last_name AS customer_name, c.email, c.phone " +
			"FROM customers c " +
			"JOIN accounts a1 ON c.id = a1.customer_id AND a1.type = 'checking' AND a1.status = 'active' " +
			"JOIN accounts a2 ON c.id = a2.customer_id AND a2.type = 'savings' AND a2.status = 'active' " +
			"ORDER BY customer_name;",
		Suggestion: "This query finds customers with both checking and savings accounts by joining the customers table twice with the accounts table. It only considers active accounts and returns customer details ordered by name.",
		ReasoningSteps: []string{
			"1. Start with customers table for personal info",
			"2. Need two joins to accounts (a1, a2) to check both account types",
			"3. Filter for active accounts only",
			"4. Use DISTINCT to avoid duplicates",
			"5. Concatenate first and last names for readability",
		},
		TablesUsed: []string{"customers", "accounts"},
		KeyColumns: []string{"customers.id", "accounts.customer_id", "accounts.type", "accounts.status"},
		Conditions: []string{"a1.type = 'checking'", "a2.type = 'savings'", "status = 'active'"},
	},
}

// tokenize splits s into lowercase word tokens for keyword-overlap scoring.
func tokenize(s string) map[string]struct{} {
	set := map[string]struct{}{}
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) > 0 {
			set[string(word)] = struct{}{}
			word = word[:0]
		}
	}
	for _, r := range s {
		lower := r
		if r >= 'A' && r <= 'Z' {
			lower = r + ('a' - 'A')
		}
		if lower >= 'a' && lower <= 'z' || lower >= '0' && lower <= '9' {
			word = append(word, lower)
		} else {
			flush()
		}
	}
	flush()
	return set
}

// Relevant returns, from Builtin, the examples whose TablesUsed overlaps
// detectedTables AND whose question's keyword set overlaps question's
// tokens, ranked by combined overlap and capped at max. Grounded on
// llm_prompt_builder_new.py's _find_relevant_examples (table_overlap AND
// keyword_overlap, top-2 cap).
func Relevant(question string, detectedTables []string, max int) []Example {
	tableSet := map[string]struct{}{}
	for _, t := range detectedTables {
		tableSet[t] = struct{}{}
	}
	qTokens := tokenize(question)

	type scored struct {
		ex    Example
		score int
	}
	var candidates []scored
	for _, ex := range Builtin {
		tableOverlap := false
		for _, t := range ex.TablesUsed {
			if _, ok := tableSet[t]; ok {
				tableOverlap = true
				break
			}
		}
		if !tableOverlap {
			continue
		}
		exTokens := tokenize(ex.Question)
		keywordOverlap := 0
		for tok := range qTokens {
			if _, ok := exTokens[tok]; ok {
				keywordOverlap++
			}
		}
		if keywordOverlap == 0 {
			continue
		}
		candidates = append(candidates, scored{ex: ex, score: keywordOverlap})
	}

	// Stable sort by score descending, preserving Builtin order on ties.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]Example, len(candidates))
	for i, c := range candidates {
		out[i] = c.ex
	}
	return out
}
