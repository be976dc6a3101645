// Package sqlstore implements the Executor component: it runs a validated
// SELECT statement against the target database and returns typed rows,
// enforcing the row cap and a last line of read-only defense independent
// of the Validator.
//
// Grounded on goeric-webcasa's internal/data/store.go (gorm.Open against a
// pure-Go sqlite driver, PRAGMA foreign_keys) and query.go's ReadOnlyQuery
// (statement-shape checks, Rows()-based scanning into generic values,
// result row cap).
package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps a gorm.DB opened against a read-only SQLite database.
type Store struct {
	db       *gorm.DB
	rowLimit int
}

// Open connects to dsn (a SQLite DSN, typically opened with mode=ro) via the
// pure-Go modernc.org/sqlite driver fronted by glebarez/sqlite, matching the
// teacher's cgo-free setup.
func Open(dsn string, rowLimit int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if rowLimit <= 0 {
		rowLimit = 200
	}
	return &Store{db: db, rowLimit: rowLimit}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// Execute implements validator.SmokeExecutor: it runs sql (expected to
// already carry a LIMIT clause) and discards the result, surfacing only the
// engine's error.
func (s *Store) Execute(ctx context.Context, sql string) error {
	rows, err := s.db.WithContext(ctx).Raw(sql).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	return rows.Err()
}

// QueryResult is the Executor's output: column names plus row data keyed by
// column, matching spec.md §4.6's execution-result shape.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
	// Truncated reports whether the result was cut off at the row cap.
	Truncated bool
}

// Query runs a validated read-only SELECT/WITH statement and returns its
// result set, capped at the Store's rowLimit. It re-checks the statement
// shape as a last line of defense independent of the Validator, mirroring
// ReadOnlyQuery's own guard.
func (s *Store) Query(ctx context.Context, sqlText string) (QueryResult, error) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return QueryResult{}, fmt.Errorf("empty query")
	}
	if strings.Contains(strings.TrimRight(trimmed, ";"), ";") {
		return QueryResult{}, fmt.Errorf("multiple statements are not allowed")
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return QueryResult{}, fmt.Errorf("only SELECT or WITH queries are allowed")
	}
	for _, kw := range []string{
		"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
		"ATTACH", "DETACH", "PRAGMA", "REINDEX", "VACUUM", "GRANT", "REVOKE",
	} {
		if containsWord(upper, kw) {
			return QueryResult{}, fmt.Errorf("query contains disallowed keyword: %s", kw)
		}
	}

	sqlRows, err := s.db.WithContext(ctx).Raw(trimmed).Rows()
	if err != nil {
		return QueryResult{}, fmt.Errorf("execute query: %w", err)
	}
	defer sqlRows.Close()

	columns, err := sqlRows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("get columns: %w", err)
	}

	var out QueryResult
	out.Columns = columns
	for sqlRows.Next() {
		if len(out.Rows) >= s.rowLimit {
			out.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := sqlRows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, sqlRows.Err()
}

// containsWord reports whether s contains keyword as a standalone word.
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
