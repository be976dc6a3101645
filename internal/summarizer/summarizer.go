// Package summarizer implements the Summarizer component: a purely
// deterministic rollup of an ExecutionResult into a human-readable summary
// plus follow-up suggestions. No LLM call.
//
// Grounded on summarizer.py's SummarizerAgent in full (285 lines): failure
// and empty-result handling, the five category templates (branch,
// employee, account, transaction, generic) with their exact headline
// emoji/markdown formatting, aggregate computations, and fixed suggestion
// lists are carried over in meaning.
package summarizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/nl2sql/pipeline/internal/metadata"
)

// Result is the Summarizer's output per spec.md §4.7.
type Result struct {
	Summary     string
	Suggestions []string
}

// Summarizer implements spec.md §4.7 against a MetadataStore for
// known-value ordering.
type Summarizer struct {
	meta *metadata.Store
}

// New builds a Summarizer.
func New(meta *metadata.Store) *Summarizer {
	return &Summarizer{meta: meta}
}

// Summarize produces Result from the question and execution outcome.
// success=false and empty rows are handled before any category dispatch.
func (s *Summarizer) Summarize(question string, success bool, errMsg string, rows []map[string]any) Result {
	if !success {
		return Result{
			Summary: fmt.Sprintf("⚠️ **Query Failed**\n\n**Your Question:** %s\n\n**Error:** %s", question, errMsg),
			Suggestions: []string{
				"Try rephrasing your question",
				"Check if the table names are correct",
				"Make sure you're asking about existing data",
			},
		}
	}

	if len(rows) == 0 {
		return Result{
			Summary: fmt.Sprintf("❌ **No Results Found**\n\n**Your Question:** %s\n\nNo data matches your criteria. Try refining your search or ask a different question.", question),
			Suggestions: []string{
				"Try broadening your search criteria",
				"Check if the data exists in the database",
				"Try a different time period or category",
			},
		}
	}

	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "branch"):
		return s.branchInsights(question, rows)
	case strings.Contains(lower, "employee"), strings.Contains(lower, "salary"):
		return s.employeeInsights(question, rows)
	case strings.Contains(lower, "account"), strings.Contains(lower, "balance"):
		return s.accountInsights(question, rows)
	case strings.Contains(lower, "transaction"):
		return s.transactionInsights(question, rows)
	default:
		return s.genericInsights(question, rows)
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// columnValues returns the non-nil string representation of col across rows,
// in row order, skipping rows where col is absent or nil.
func columnValues(rows []map[string]any, col string) []string {
	var out []string
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		out = append(out, cast.ToString(v))
	}
	return out
}

// hasColumn reports whether any row carries col with a non-nil value.
func hasColumn(rows []map[string]any, col string) bool {
	for _, row := range rows {
		if v, ok := row[col]; ok && v != nil {
			return true
		}
	}
	return false
}

// numericValues coerces col's values to float64, skipping unparsable ones.
func numericValues(rows []map[string]any, col string) []float64 {
	var out []float64
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

func sumFloats(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

func avgFloats(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sumFloats(vals) / float64(len(vals))
}

func minFloats(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloats(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// valueCounts groups values and returns counts, matching pandas'
// value_counts.
func valueCounts(values []string) map[string]int {
	groups := lo.GroupBy(values, func(v string) string { return v })
	counts := make(map[string]int, len(groups))
	for k, vs := range groups {
		counts[k] = len(vs)
	}
	return counts
}

func money(v float64) string {
	return fmt.Sprintf("$%s", formatThousands(v))
}

// formatThousands renders v with thousands separators and 2 decimal places,
// matching Python's f"{v:,.2f}".
func formatThousands(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	digits := fmt.Sprintf("%d", cents/100)
	var grouped []byte
	for i, c := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, c)
	}
	return fmt.Sprintf("%s%s.%02d", sign, string(grouped), cents%100)
}

func sortedKeysByPriority(counts map[string]int, priority []string) []string {
	var ordered []string
	for _, p := range priority {
		if _, ok := counts[p]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func sortedKeysDescending(counts map[string]int, limit int) []string {
	type kv struct {
		k string
		v int
	}
	var pairs []kv
	for k, v := range counts {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].v != pairs[j].v {
			return pairs[i].v > pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	var out []string
	for i, p := range pairs {
		if limit > 0 && i >= limit {
			break
		}
		out = append(out, p.k)
	}
	return out
}
