// Package validator implements the Validator component: the safety gate
// that enforces the read-only invariant and basic structural validity
// before any SQL reaches the Executor.
//
// Grounded on sql_validator.py (dangerous-keyword scan, identifier
// extraction, LIMIT-1 smoke test, error-taxonomy) and validator.py (the
// "SELECT 1" constant-expression exemption); the standalone-token scan and
// identifier tokenizer are adapted from goeric-webcasa's
// internal/data/query.go ReadOnlyQuery (containsWord word-boundary
// matching) and internal/llm/sqlfmt.go (hand-rolled SQL tokenization),
// since no teacher/pack dependency offers a SQL-parsing library.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// forbiddenKeywords is spec.md §4.5 rule 3's list — deliberately larger than
// sql_validator.py's DANGEROUS_KEYWORDS; the spec's list governs per
// SPEC_FULL.md.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "UPDATE", "INSERT", "ALTER", "CREATE",
	"MODIFY", "RENAME", "REPLACE", "GRANT", "REVOKE", "ATTACH", "DETACH", "PRAGMA",
}

var fromJoinIdentifier = regexp.MustCompile(`(?i)(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)

// literalPredicate matches `column = 'literal'` comparisons so their literal
// can be checked against the column's declared enumerated domain.
var literalPredicate = regexp.MustCompile(`(?i)([a-zA-Z_][a-zA-Z0-9_]*)\s*=\s*'([^']*)'`)

// constantExpr matches a literal constant-expression SELECT such as
// "SELECT 1" with no FROM clause at all.
var constantExpr = regexp.MustCompile(`(?is)^SELECT\s+[^;]*?$`)

// Result is the Validator's output per spec.md §4.5.
type Result struct {
	IsValid    bool
	Error      string
	TablesUsed []string
	Warnings   []string
}

// ErrorKind classifies a validation/execution failure for the repair loop's
// remediation hint, per spec.md §4.5/§7.
type ErrorKind string

const (
	KindEmpty           ErrorKind = "empty"
	KindForbiddenKW     ErrorKind = "forbidden_keyword"
	KindNoKnownTable    ErrorKind = "no_known_table"
	KindSyntax          ErrorKind = "syntax_error"
	KindTableNotFound   ErrorKind = "table_not_found"
	KindColumnNotFound  ErrorKind = "column_not_found"
	KindAmbiguousColumn ErrorKind = "ambiguous_column"
	KindEnumViolation   ErrorKind = "enum_violation"
	KindUnknown         ErrorKind = "unknown"
)

// TableKnower is the minimal surface of MetadataStore the Validator needs:
// whether an identifier names a known table/column and whether a literal
// belongs to a column's declared enumerated domain.
type TableKnower interface {
	HasTable(table string) bool
	HasColumn(table, column string) bool
	DistinctValues(table, column string) []string
	ValidateValue(table, column, value string) bool
}

// SmokeExecutor runs sql (already carrying a row-limiting clause) and
// returns an error if the engine rejects it. Implemented by sqlstore.Store.
type SmokeExecutor interface {
	Execute(ctx context.Context, sql string) error
}

// Validator implements the safety gate.
type Validator struct {
	meta TableKnower
	exec SmokeExecutor
}

// New builds a Validator.
func New(meta TableKnower, exec SmokeExecutor) *Validator {
	return &Validator{meta: meta, exec: exec}
}

// Validate implements the ordered rules of spec.md §4.5 plus the §8
// invariant 7 enum-literal check.
func (v *Validator) Validate(ctx context.Context, sql string) Result {
	trimmed := strings.TrimSpace(sql)

	// Rule 1: empty.
	if trimmed == "" {
		return Result{IsValid: false, Error: "empty SQL query"}
	}

	// Rule 2: first significant token must be a read-only verb.
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return Result{IsValid: false, Error: "only SELECT or WITH (CTE) statements are allowed"}
	}

	// Rule 3: forbidden standalone keywords, case-insensitive, outside
	// string literals.
	if kw, ok := firstForbiddenKeyword(trimmed); ok {
		return Result{IsValid: false, Error: fmt.Sprintf("forbidden keyword '%s' found in query", kw)}
	}

	// Rule 4: identifier extraction / constant-expression exemption.
	tables, warnings := v.extractTables(trimmed)
	if len(tables) == 0 && !isConstantExpression(trimmed) {
		return Result{IsValid: false, Error: "no known table referenced and not a constant expression"}
	}

	// Rule 4.5: a literal compared against a column with a declared
	// enumerated domain must belong to that domain, per spec.md §8
	// invariant 7.
	if msg, bad := v.enumViolation(trimmed, tables); bad {
		return Result{IsValid: false, Error: msg, TablesUsed: tables, Warnings: warnings}
	}

	// Rule 5: smoke execution with LIMIT 1.
	if v.exec != nil {
		smoke := withLimitOne(trimmed)
		if err := v.exec.Execute(ctx, smoke); err != nil {
			return Result{IsValid: false, Error: err.Error(), TablesUsed: tables, Warnings: warnings}
		}
	}

	return Result{IsValid: true, TablesUsed: tables, Warnings: warnings}
}

// extractTables extracts identifiers following FROM/JOIN and keeps only
// those that are known tables (per meta); it adds a warning when none of
// them is a known table, matching sql_validator.py's
// _has_valid_identifiers combined with validator.py's known-table scan.
func (v *Validator) extractTables(sql string) (tables []string, warnings []string) {
	matches := fromJoinIdentifier.FindAllStringSubmatch(sql, -1)
	seen := map[string]struct{}{}
	for _, m := range matches {
		ident := m[1]
		if v.meta != nil && v.meta.HasTable(ident) {
			if _, ok := seen[ident]; !ok {
				seen[ident] = struct{}{}
				tables = append(tables, ident)
			}
		}
	}
	if len(tables) == 0 {
		warnings = append(warnings, "no known tables referenced")
	}
	return tables, warnings
}

// enumViolation scans sql for `column = 'literal'` predicates and reports
// the first one whose literal falls outside a declared enumerated domain
// for that column on any of tables, matching metadata_loader.py's
// validate_value semantics (a column with no declared domain accepts any
// value, so only columns that do declare one can be violated).
func (v *Validator) enumViolation(sql string, tables []string) (string, bool) {
	if v.meta == nil {
		return "", false
	}
	for _, m := range literalPredicate.FindAllStringSubmatch(sql, -1) {
		column, literal := m[1], m[2]
		for _, table := range tables {
			if !v.meta.HasColumn(table, column) {
				continue
			}
			if v.meta.ValidateValue(table, column, literal) {
				continue
			}
			domain := v.meta.DistinctValues(table, column)
			if len(domain) == 0 {
				continue
			}
			return fmt.Sprintf("value '%s' for column '%s' is outside its declared domain %v", literal, column, domain), true
		}
	}
	return "", false
}

// isConstantExpression reports whether sql has no FROM/JOIN clause at all
// (e.g. "SELECT 1"), matching validator.py's "SELECT 1" exemption.
func isConstantExpression(sql string) bool {
	upper := strings.ToUpper(sql)
	return !strings.Contains(upper, "FROM") && !strings.Contains(upper, "JOIN") && constantExpr.MatchString(sql)
}

// firstForbiddenKeyword scans sql for the first forbidden keyword appearing
// as a standalone token outside single-quoted string literals.
func firstForbiddenKeyword(sql string) (string, bool) {
	masked := maskStringLiterals(sql)
	upper := strings.ToUpper(masked)
	for _, kw := range forbiddenKeywords {
		if containsWord(upper, kw) {
			return kw, true
		}
	}
	return "", false
}

// maskStringLiterals replaces the contents of single-quoted string literals
// with spaces so keyword scanning never matches text inside a literal
// (e.g. a branch named 'Update Heights').
func maskStringLiterals(sql string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' && !inString:
			inString = true
			b.WriteByte(c)
		case c == '\'' && inString:
			// Handle doubled '' escape inside a literal.
			if i+1 < len(sql) && sql[i+1] == '\'' {
				b.WriteByte(' ')
				b.WriteByte(' ')
				i++
				continue
			}
			inString = false
			b.WriteByte(c)
		case inString:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// containsWord reports whether s contains keyword as a standalone word, not
// as part of a larger identifier (so "deleted_at" doesn't match "DELETE").
// Adapted from goeric-webcasa's internal/data/query.go containsWord.
func containsWord(s, keyword string) bool {
	for i := 0; ; {
		idx := strings.Index(s[i:], keyword)
		if idx < 0 {
			return false
		}
		pos := i + idx
		end := pos + len(keyword)
		leftOK := pos == 0 || !isIdentChar(s[pos-1])
		rightOK := end >= len(s) || !isIdentChar(s[end])
		if leftOK && rightOK {
			return true
		}
		i = pos + 1
	}
}

func isIdentChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '_'
}

// withLimitOne appends "LIMIT 1" to sql unless it already carries a LIMIT
// clause, after trimming a trailing semicolon, matching sql_validator.py's
// _test_execution.
func withLimitOne(sql string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
	if strings.Contains(strings.ToUpper(trimmed), "LIMIT") {
		return trimmed
	}
	return trimmed + " LIMIT 1"
}

// Classify maps an engine/validator error message to one of the taxonomy
// kinds, each with a short remediation hint, matching sql_validator.py's
// get_error_context.
func Classify(errMsg string) (ErrorKind, string) {
	lower := strings.ToLower(errMsg)
	switch {
	case strings.Contains(lower, "no such table"):
		return KindTableNotFound, "Check table names and ensure they exist in the schema"
	case strings.Contains(lower, "no such column"), strings.Contains(lower, "does not exist"):
		return KindColumnNotFound, "Verify column names and table aliases"
	case strings.Contains(lower, "ambiguous"):
		return KindAmbiguousColumn, "Use table aliases to qualify column names"
	case strings.Contains(lower, "outside its declared domain"):
		return KindEnumViolation, "Use one of the column's declared values"
	case strings.Contains(lower, "syntax error"):
		return KindSyntax, "Check SQL syntax, especially JOINs and conditions"
	default:
		return KindUnknown, "Please review the query syntax"
	}
}
