package summarizer

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// branchInsights mirrors summarizer.py's _generate_branch_insights: headline,
// optional manager-coverage line, optional per-state breakdown (ordered by
// the metadata-declared domain, only states present in rows), fixed
// suggestions.
func (s *Summarizer) branchInsights(question string, rows []map[string]any) Result {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Branch Analysis**\n\n**Your Question:** %s\n\n", question)
	total := len(rows)
	fmt.Fprintf(&b, "Found **%d** %s.", total, pluralize(total, "branch", "branches"))

	if hasColumn(rows, "manager_name") {
		managed := 0
		for _, row := range rows {
			if v, ok := row["manager_name"]; ok && v != nil && cast.ToString(v) != "" {
				managed++
			}
		}
		unmanaged := total - managed
		coverage := 0.0
		if total > 0 {
			coverage = float64(managed) / float64(total) * 100
		}
		fmt.Fprintf(&b, "\n\n**Management Coverage:** %d managed, %d unmanaged (%.1f%% coverage)", managed, unmanaged, coverage)
	}

	if hasColumn(rows, "state") {
		counts := valueCounts(columnValues(rows, "state"))
		states := sortedKeysByPriority(counts, s.meta.DistinctValues("branches", "state"))
		if len(states) > 0 {
			b.WriteString("\n\n**By State:**")
			for _, state := range states {
				fmt.Fprintf(&b, "\n- %s: %d", state, counts[state])
			}
		}
	}

	return Result{
		Summary: b.String(),
		Suggestions: []string{
			"Show me branches without managers",
			"Which branch has the most employees?",
			"Show me branch performance by transaction volume",
			"List branches by city",
		},
	}
}

// employeeInsights mirrors _generate_employee_insights: headline, optional
// salary stats, optional per-position breakdown.
func (s *Summarizer) employeeInsights(question string, rows []map[string]any) Result {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 **Employee Analysis**\n\n**Your Question:** %s\n\n", question)
	total := len(rows)
	fmt.Fprintf(&b, "Found **%d** %s.", total, pluralize(total, "employee", "employees"))

	if hasColumn(rows, "salary") {
		vals := numericValues(rows, "salary")
		if len(vals) > 0 {
			fmt.Fprintf(&b, "\n\n**Salary:** average %s, max %s, min %s",
				money(avgFloats(vals)), money(maxFloats(vals)), money(minFloats(vals)))
		}
	}

	if hasColumn(rows, "position") {
		counts := valueCounts(columnValues(rows, "position"))
		positions := sortedKeysByPriority(counts, s.meta.DistinctValues("employees", "position"))
		if len(positions) > 0 {
			b.WriteString("\n\n**By Position:**")
			for _, position := range positions {
				fmt.Fprintf(&b, "\n- %s: %d", position, counts[position])
			}
		}
	}

	return Result{
		Summary: b.String(),
		Suggestions: []string{
			"Show me the highest paid employees",
			"What's the average salary by position?",
			"Show me employees hired in the last year",
			"Which employees handle the most transactions?",
		},
	}
}

// accountInsights mirrors _generate_account_insights: headline, optional
// balance stats, optional per-type and per-status breakdowns.
func (s *Summarizer) accountInsights(question string, rows []map[string]any) Result {
	var b strings.Builder
	fmt.Fprintf(&b, "💳 **Account Analysis**\n\n**Your Question:** %s\n\n", question)
	total := len(rows)
	fmt.Fprintf(&b, "Found **%d** %s.", total, pluralize(total, "account", "accounts"))

	if hasColumn(rows, "balance") {
		vals := numericValues(rows, "balance")
		if len(vals) > 0 {
			fmt.Fprintf(&b, "\n\n**Balance:** total %s, average %s", money(sumFloats(vals)), money(avgFloats(vals)))
		}
	}

	if hasColumn(rows, "type") {
		counts := valueCounts(columnValues(rows, "type"))
		types := sortedKeysByPriority(counts, s.meta.DistinctValues("accounts", "type"))
		if len(types) > 0 {
			b.WriteString("\n\n**By Type:**")
			for _, t := range types {
				fmt.Fprintf(&b, "\n- %s: %d", t, counts[t])
			}
		}
	}

	if hasColumn(rows, "status") {
		counts := valueCounts(columnValues(rows, "status"))
		statuses := sortedKeysByPriority(counts, s.meta.DistinctValues("accounts", "status"))
		if len(statuses) > 0 {
			b.WriteString("\n\n**By Status:**")
			for _, status := range statuses {
				fmt.Fprintf(&b, "\n- %s: %d", status, counts[status])
			}
		}
	}

	return Result{
		Summary: b.String(),
		Suggestions: []string{
			"Show me accounts with high balances",
			"What's the average balance by account type?",
			"Show me recently opened accounts",
			"Which accounts have the most transactions?",
		},
	}
}

// transactionInsights mirrors _generate_transaction_insights: headline,
// optional amount stats, optional per-type and per-status breakdowns.
func (s *Summarizer) transactionInsights(question string, rows []map[string]any) Result {
	var b strings.Builder
	fmt.Fprintf(&b, "💸 **Transaction Analysis**\n\n**Your Question:** %s\n\n", question)
	total := len(rows)
	fmt.Fprintf(&b, "Found **%d** %s.", total, pluralize(total, "transaction", "transactions"))

	if hasColumn(rows, "amount") {
		vals := numericValues(rows, "amount")
		if len(vals) > 0 {
			fmt.Fprintf(&b, "\n\n**Amount:** total %s, average %s", money(sumFloats(vals)), money(avgFloats(vals)))
		}
	}

	if hasColumn(rows, "type") {
		counts := valueCounts(columnValues(rows, "type"))
		types := sortedKeysByPriority(counts, s.meta.DistinctValues("transactions", "type"))
		if len(types) > 0 {
			b.WriteString("\n\n**By Type:**")
			for _, t := range types {
				fmt.Fprintf(&b, "\n- %s: %d", t, counts[t])
			}
		}
	}

	if hasColumn(rows, "status") {
		counts := valueCounts(columnValues(rows, "status"))
		statuses := sortedKeysByPriority(counts, s.meta.DistinctValues("transactions", "status"))
		if len(statuses) > 0 {
			b.WriteString("\n\n**By Status:**")
			for _, status := range statuses {
				fmt.Fprintf(&b, "\n- %s: %d", status, counts[status])
			}
		}
	}

	return Result{
		Summary: b.String(),
		Suggestions: []string{
			"Show me high-value transactions",
			"What's the average transaction amount by type?",
			"Show me today's transactions",
			"Which accounts have the most transactions?",
		},
	}
}

// genericInsights mirrors _generate_generic_insights: headline, up to 3
// numeric-column summaries (average + range), up to 2 categorical-column
// top-3 breakdowns.
func (s *Summarizer) genericInsights(question string, rows []map[string]any) Result {
	var b strings.Builder
	b.WriteString("📊 **Query Results**\n\n")
	fmt.Fprintf(&b, "**Your Question:** %s\n\n", question)
	total := len(rows)
	fmt.Fprintf(&b, "Found **%d** %s.", total, pluralize(total, "result", "results"))

	numericCols, categoricalCols := classifyColumns(rows)

	numericShown := 0
	for _, col := range numericCols {
		if numericShown >= 3 {
			break
		}
		vals := numericValues(rows, col)
		if len(vals) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n**%s:** average %s, range %s to %s",
			col, formatThousands(avgFloats(vals)), formatThousands(minFloats(vals)), formatThousands(maxFloats(vals)))
		numericShown++
	}

	categoricalShown := 0
	for _, col := range categoricalCols {
		if categoricalShown >= 2 {
			break
		}
		counts := valueCounts(columnValues(rows, col))
		top := sortedKeysDescending(counts, 3)
		if len(top) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n**Top %s values:**", col)
		for _, v := range top {
			fmt.Fprintf(&b, "\n- %s: %d", v, counts[v])
		}
		categoricalShown++
	}

	return Result{
		Summary: b.String(),
		Suggestions: []string{
			"Show me the count of rows by table",
			"What are the most common values?",
			"Show me the data distribution",
			"Can you explain the patterns in this data?",
		},
	}
}

// classifyColumns splits rows' columns into numeric and categorical sets,
// in the order columns are first met while ranging over each row map (so the
// order within a row is not stable between runs), matching pandas' int64/float64 vs object
// dtype split closely enough for summarization purposes: a column is
// numeric when every non-nil value across rows parses as a number.
func classifyColumns(rows []map[string]any) (numeric, categorical []string) {
	var order []string
	seen := map[string]struct{}{}
	for _, row := range rows {
		for col := range row {
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				order = append(order, col)
			}
		}
	}

	for _, col := range order {
		if len(numericValues(rows, col)) == len(columnValues(rows, col)) && len(columnValues(rows, col)) > 0 {
			numeric = append(numeric, col)
		} else {
			categorical = append(categorical, col)
		}
	}
	return numeric, categorical
}
