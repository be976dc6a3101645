package generator

import (
	"fmt"
	"strings"

	"github.com/nl2sql/pipeline/internal/metadata"
)

// patternFallback matches question against a small closed set of templates,
// matching sql_generator.py's _try_pattern_matching. It returns ("", "")
// when no template matches.
func patternFallback(meta *metadata.Store, question string) (sql, suggestion string) {
	lower := strings.ToLower(question)

	if strings.Contains(lower, "branch") && strings.Contains(lower, "manager") {
		if !meta.HasTable("branches") || !meta.HasTable("employees") {
			return "", ""
		}
		return "SELECT b.name AS branch_name, e.name AS manager_name " +
				"FROM branches b " +
				"LEFT JOIN employees e ON b.manager_id = e.id AND e.position = 'Branch Manager' " +
				"ORDER BY b.name;",
			"This query lists all bank branches along with their manager names. It uses a LEFT JOIN to include branches without managers, and filters for employees with the 'Branch Manager' position. Results are ordered by branch name."
	}

	if (strings.Contains(lower, "both") || strings.Contains(lower, "multiple")) && strings.Contains(lower, "account") {
		if !meta.HasTable("accounts") {
			return "", ""
		}
		var matchedTypes []string
		for _, accType := range meta.DistinctValues("accounts", "type") {
			if strings.Contains(lower, strings.ToLower(accType)) {
				matchedTypes = append(matchedTypes, accType)
			}
		}
		if len(matchedTypes) < 2 {
			return "", ""
		}

		var joins, conditions []string
		for i, accType := range matchedTypes {
			alias := fmt.Sprintf("a%d", i+1)
			joins = append(joins, fmt.Sprintf("JOIN accounts %s ON c.id = %s.customer_id AND %s.status = 'active'", alias, alias, alias))
			conditions = append(conditions, fmt.Sprintf("%s.type = '%s'", alias, accType))
		}

		sql = fmt.Sprintf(
			"SELECT DISTINCT c.first_name || ' ' || c.last_name AS customer_name FROM customers c %s WHERE %s ORDER BY customer_name;",
			strings.Join(joins, " "), strings.Join(conditions, " AND "),
		)
		suggestion = fmt.Sprintf(
			"This query finds customers who have all of the following account types: %s. It only considers active accounts and returns distinct customer names in alphabetical order.",
			strings.Join(matchedTypes, ", "),
		)
		return sql, suggestion
	}

	return "", ""
}
