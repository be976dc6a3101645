package promptbuilder

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/planner"
)

var entityWords = []struct {
	word, table, description string
}{
	{"customer", "customers", "person who has accounts"},
	{"account", "accounts", "banking account"},
	{"branch", "branches", "bank location"},
	{"employee", "employees", "bank staff"},
	{"manager", "employees", "branch manager"},
	{"transaction", "transactions", "account activity"},
}

// chainOfThought builds up to five chain-of-thought reasoning steps (a step
// with nothing to report is omitted), matching llm_prompt_builder_new.py's
// _build_chain_of_thought_steps.
func chainOfThought(meta *metadata.Store, question string, plan planner.Plan) []string {
	lowerQ := strings.ToLower(question)
	var steps []string

	// Step 1: entity identification.
	var entities []string
	for _, ew := range entityWords {
		if strings.Contains(lowerQ, ew.word) && lo.Contains(plan.DetectedTables, ew.table) {
			entities = append(entities, fmt.Sprintf("%s (%s)", ew.word, ew.description))
		}
	}
	if len(entities) > 0 {
		steps = append(steps, "1. Identified entities: "+strings.Join(entities, ", "))
	}

	// Step 2: schema mapping, key columns per table.
	var mappings []string
	for _, table := range plan.DetectedTables {
		var keyCols []string
		for _, col := range meta.Columns(table) {
			c, ok := meta.Column(table, col)
			if ok && (c.PrimaryKey || c.Required) {
				keyCols = append(keyCols, col)
			}
		}
		if len(keyCols) > 0 {
			mappings = append(mappings, fmt.Sprintf("%s (key columns: %s)", table, strings.Join(keyCols, ", ")))
		}
	}
	if len(mappings) > 0 {
		steps = append(steps, "2. Required tables: "+strings.Join(mappings, ", "))
	}

	// Step 3: join analysis along detected-table order.
	if len(plan.DetectedTables) > 1 {
		fkg := meta.ForeignKeyGraph()
		var joins []string
		for i := 0; i+1 < len(plan.DetectedTables); i++ {
			t1, t2 := plan.DetectedTables[i], plan.DetectedTables[i+1]
			for _, e := range fkg.From(t1) {
				if e.ToTable == t2 {
					joins = append(joins, fmt.Sprintf("%s → %s via %s", t1, t2, e.FromColumn))
				}
			}
		}
		if len(joins) > 0 {
			steps = append(steps, "3. Join path: "+strings.Join(joins, " then "))
		}
	}

	// Step 4: conditions.
	var conditions []string
	if plan.HasCapability("aggregate") {
		conditions = append(conditions, "Apply aggregation functions")
	}
	if plan.HasCapability("date_filter") {
		conditions = append(conditions, "Add date range filters")
	}
	if lo.Contains(plan.DetectedTables, "accounts") || lo.Contains(plan.DetectedTables, "transactions") {
		conditions = append(conditions, "Check status='active' where applicable")
	}
	for _, table := range plan.DetectedTables {
		for _, col := range meta.Columns(table) {
			domain := meta.DistinctValues(table, col)
			if len(domain) == 0 {
				continue
			}
			for _, val := range domain {
				if strings.Contains(lowerQ, strings.ToLower(val)) {
					conditions = append(conditions, fmt.Sprintf("Validate %s.%s against allowed values: %s", table, col, strings.Join(domain, ", ")))
					break
				}
			}
		}
	}
	if len(conditions) > 0 {
		steps = append(steps, "4. Required conditions: "+strings.Join(conditions, ", "))
	}

	// Step 5: output planning.
	var outputs []string
	if lo.Contains(plan.DetectedTables, "customers") {
		outputs = append(outputs, "Concatenate first_name and last_name")
	}
	if plan.HasCapability("aggregate") {
		outputs = append(outputs, "Include aggregated values")
	}
	for _, w := range []string{"order", "sort", "rank"} {
		if strings.Contains(lowerQ, w) {
			outputs = append(outputs, "Add ORDER BY clause")
			break
		}
	}
	if len(outputs) > 0 {
		steps = append(steps, "5. Output formatting: "+strings.Join(outputs, ", "))
	}

	if len(steps) == 0 {
		return []string{
			"1. Identify entities in the question",
			"2. Map to relevant tables/columns",
			"3. Plan necessary joins/filters",
			"4. Determine output columns",
			"5. Consider ordering and grouping",
		}
	}
	return steps
}
