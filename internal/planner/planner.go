// Package planner implements the Planner component: from raw natural
// language, derive likely tables, SQL capabilities, clarifications, and
// follow-up suggestions. Pure on SchemaMetadata; no I/O.
//
// Grounded on the original system's planner.py: the closed keyword
// vocabularies, the table-detection algorithm, and clarification/follow-up
// generation are carried over in meaning, re-expressed as explicit Go code
// instead of ad-hoc Python dict/list literals (per SPEC_FULL.md §9's
// re-architecture hint on heterogeneous dict payloads).
package planner

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/nl2sql/pipeline/internal/metadata"
)

// Closed keyword vocabularies, carried verbatim from planner.py.
var (
	dateWords      = []string{"q1", "q2", "q3", "q4", "quarter", "year", "month", "week", "today", "yesterday", "last", "first quarter", "2024", "2025"}
	aggWords       = []string{"average", "avg", "sum", "count", "total", "number of", "how many"}
	existsWords    = []string{"both", "either", "and", "have both", "have both a", "have both an"}
	windowWords    = []string{"consecutive", "consecutive days", "lag", "lead"}
	weekendWords   = []string{"weekend", "saturday", "sunday"}
	thresholdWords = []string{"greater than", "less than", "above", "below", "minimum", "max", "at least", "more than"}
)

// Closed singular->plural heuristic vocabulary: a substring hit on the
// singular form searches the schema's table names for a substring match on
// the same stem.
var heuristicStems = []string{"customer", "account", "transaction", "employee", "branch"}

var numberToken = regexp.MustCompile(`\b\d{2,}\b`)
var yearToken = regexp.MustCompile(`\b(20\d{2}|202\d)\b`)

// Planner implements the Planner component against a fixed MetadataStore.
type Planner struct {
	meta *metadata.Store
}

// New constructs a Planner over meta.
func New(meta *metadata.Store) *Planner {
	return &Planner{meta: meta}
}

// Analyze implements the Planner contract. Never fails: on empty/garbage
// input it returns a Plan naming all tables, no capabilities, no
// clarifications.
func (p *Planner) Analyze(question string) Plan {
	if strings.TrimSpace(question) == "" {
		return Plan{
			Question:       question,
			DetectedTables: p.meta.TableNames(),
			Capabilities:   nil,
			Clarifications: nil,
			FollowUps:      nil,
		}
	}

	tables := p.detectTables(question)
	capabilities := p.detectCapabilities(question)
	clarifications := p.detectClarifications(question)
	followUps := p.generateFollowUps(question)

	return Plan{
		Question:       question,
		DetectedTables: tables,
		Capabilities:   capabilities,
		Clarifications: clarifications,
		FollowUps:      followUps,
	}
}

// detectTables implements the three detection steps plus the
// fall-back-to-all-tables rule, preserving first-occurrence order.
func (p *Planner) detectTables(question string) []string {
	tl := strings.ToLower(question)
	var found []string

	// Step 1: substring match of table name against the lowercased question.
	for _, table := range p.meta.TableNames() {
		if strings.Contains(tl, strings.ToLower(table)) {
			found = append(found, table)
		}
	}

	// Step 2: enumerated-value match — if any enum value of any column
	// appears as a substring, add that table.
	for _, table := range p.meta.TableNames() {
		t, _ := p.meta.Table(table)
		matched := false
		for _, col := range t.Columns {
			for _, v := range col.DistinctValues {
				if strings.Contains(tl, strings.ToLower(v)) {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if matched {
			found = append(found, table)
		}
	}

	// Step 3: closed singular->plural heuristic vocabulary, only consulted
	// when steps 1-2 found nothing.
	if len(found) == 0 {
		for _, stem := range heuristicStems {
			if strings.Contains(tl, stem) {
				for _, table := range p.meta.TableNames() {
					if strings.Contains(table, stem) {
						found = append(found, table)
					}
				}
			}
		}
	}

	// Step 4: fall back to all known tables.
	if len(found) == 0 {
		return p.meta.TableNames()
	}
	return lo.Uniq(found)
}

// detectCapabilities tags the question against the closed keyword sets plus
// metadata-driven enum-value detection, additively.
func (p *Planner) detectCapabilities(question string) []string {
	tl := strings.ToLower(question)
	caps := map[string]struct{}{}

	addIfAny := func(tag string, words []string) {
		for _, w := range words {
			if strings.Contains(tl, w) {
				caps[tag] = struct{}{}
				return
			}
		}
	}
	addIfAny("aggregate", aggWords)
	addIfAny("exists", existsWords)
	addIfAny("window", windowWords)
	addIfAny("weekend", weekendWords)
	addIfAny("date_filter", dateWords)
	addIfAny("threshold", thresholdWords)

	if hasAnyValue(tl, p.meta.DistinctValues("accounts", "type")) {
		caps["account_type_filter"] = struct{}{}
	}
	if hasAnyValue(tl, p.meta.DistinctValues("transactions", "type")) {
		caps["transaction_type_filter"] = struct{}{}
	}
	if hasAnyValue(tl, p.meta.DistinctValues("employees", "position")) {
		caps["position_filter"] = struct{}{}
	}
	if strings.Contains(tl, "manager") || strings.Contains(tl, "handled by") || strings.Contains(tl, "handled") {
		caps["join_employees"] = struct{}{}
	}

	out := lo.Keys(caps)
	sort.Strings(out)
	return out
}

func hasAnyValue(tl string, values []string) bool {
	for _, v := range values {
		if strings.Contains(tl, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

const defaultMinBalance = 20000

// detectClarifications emits one clarification record per unresolved
// ambiguity, matching planner.py's four checks.
func (p *Planner) detectClarifications(question string) []Clarification {
	tl := strings.ToLower(question)
	var clar []Clarification

	if containsAny(tl, "high value", "high balance", "rich", "wealthy") && !numberToken.MatchString(question) {
		threshold := defaultMinBalance
		clar = append(clar, Clarification{
			Field:   "min_balance",
			Prompt:  "What minimum balance should count as 'high'?",
			Type:    "number",
			Default: threshold,
		})
	}

	if (strings.Contains(tl, "recent") || strings.Contains(tl, "last")) && !yearToken.MatchString(question) {
		clar = append(clar, Clarification{
			Field:   "date_range",
			Prompt:  "What date range do you mean by 'recent'?",
			Type:    "text",
			Default: "last 30 days",
		})
	}

	if strings.Contains(tl, "q1") || strings.Contains(tl, "first quarter") {
		clar = append(clar, Clarification{
			Field:   "date_range",
			Prompt:  "Confirm date range for Q1",
			Type:    "text",
			Default: "2025-01-01..2025-03-31",
		})
	}

	accountTypes := p.meta.DistinctValues("accounts", "type")
	if strings.Contains(tl, "account") && !hasAnyValue(tl, accountTypes) {
		def := "checking"
		if len(accountTypes) > 0 {
			def = accountTypes[0]
		}
		clar = append(clar, Clarification{
			Field:   "account_type",
			Prompt:  "What type of account are you interested in?",
			Type:    "select",
			Options: accountTypes,
			Default: def,
		})
	}

	return clar
}

func containsAny(tl string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(tl, n) {
			return true
		}
	}
	return false
}

// generateFollowUps produces topic-scoped suggestions keyed off the
// keywords present, capped at 4, matching planner.py's
// _generate_follow_up_suggestions.
func (p *Planner) generateFollowUps(question string) []string {
	ql := strings.ToLower(question)
	var suggestions []string

	if strings.Contains(ql, "branch") {
		if strings.Contains(ql, "transaction") {
			suggestions = append(suggestions,
				"Show me the bottom 5 performing branches",
				"What's the average transaction amount by branch?",
				"Show me branch performance by month",
				"Compare branch performance by employee count",
			)
		} else {
			suggestions = append(suggestions,
				"Show me the top 10 branches by transaction volume",
				"Which branches have the most employees?",
				"Show me branch performance by revenue",
				"What's the average account balance by branch?",
			)
		}
	}

	if strings.Contains(ql, "account") || strings.Contains(ql, "balance") {
		accountTypes := p.meta.DistinctValues("accounts", "type")
		if len(accountTypes) >= 2 {
			suggestions = append(suggestions, "Show me customers with both "+accountTypes[0]+" and "+accountTypes[1]+" accounts")
		}
		suggestions = append(suggestions,
			"Show me the top 10 accounts by balance",
			"What's the average account balance?",
			"Show me account distribution by type",
		)
	}

	if strings.Contains(ql, "employee") || strings.Contains(ql, "salary") {
		positions := p.meta.DistinctValues("employees", "position")
		if len(positions) > 0 {
			suggestions = append(suggestions, "Show me all "+positions[0]+"s")
		}
		suggestions = append(suggestions,
			"Show me the top 10 highest paid employees",
			"What's the average employee salary?",
			"Show me salary distribution by position",
		)
	}

	if strings.Contains(ql, "transaction") {
		types := p.meta.DistinctValues("transactions", "type")
		if len(types) > 0 {
			suggestions = append(suggestions, "Show me all "+types[0]+" transactions")
		}
		suggestions = append(suggestions,
			"Show me transaction trends by month",
			"What's the average transaction amount?",
			"Show me transactions by type",
		)
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions,
			"Show me the count of rows by each table",
			"What's the top performing branch?",
			"Show me the highest balance account",
			"Which employee has the highest salary?",
		)
	}

	if len(suggestions) > 4 {
		suggestions = suggestions[:4]
	}
	return suggestions
}
