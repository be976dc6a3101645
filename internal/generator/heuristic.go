package generator

import (
	"regexp"
	"strings"
)

var problematicColumnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`no such column: (\w+)`),
	regexp.MustCompile(`column (\w+) does not exist`),
	regexp.MustCompile(`ambiguous column name: (\w+)`),
}

// extractProblematicColumns pulls column names named in an error message,
// matching sql_generator.py's _extract_problematic_columns.
func extractProblematicColumns(errMsg string) []string {
	lower := strings.ToLower(errMsg)
	seen := map[string]struct{}{}
	var out []string
	for _, pat := range problematicColumnPatterns {
		for _, m := range pat.FindAllStringSubmatch(lower, -1) {
			col := m[1]
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				out = append(out, col)
			}
		}
	}
	return out
}

var wordBoundary = func(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// stripProblematicColumns removes excludedColumns from sql's SELECT clause
// while preserving FROM/WHERE/JOIN/etc., matching sql_generator.py's
// _create_simplified_query.
func stripProblematicColumns(sql string, excludedColumns []string) string {
	lower := strings.ToLower(sql)
	selectIdx := strings.Index(lower, "select")
	if selectIdx == -1 {
		return sql
	}
	fromIdx := strings.Index(lower[selectIdx:], "from")
	if fromIdx == -1 {
		return sql
	}
	fromIdx += selectIdx

	selectClause := sql[selectIdx:fromIdx]
	for _, col := range excludedColumns {
		selectClause = wordBoundary(col).ReplaceAllString(selectClause, "")
	}
	selectClause = regexp.MustCompile(`,\s*,`).ReplaceAllString(selectClause, ",")
	selectClause = regexp.MustCompile(`^\s*SELECT\s*,`).ReplaceAllString(selectClause, "SELECT ")
	selectClause = regexp.MustCompile(`,\s*$`).ReplaceAllString(strings.TrimRight(selectClause, " \t\n"), "")

	return selectClause + " " + sql[fromIdx:]
}
