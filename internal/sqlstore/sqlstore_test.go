package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared", 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.db.Exec("CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)").Error)
	require.NoError(t, s.db.Exec("INSERT INTO customers (id, name) VALUES (1, 'Ada'), (2, 'Grace')").Error)
	return s
}

func TestQueryReturnsRows(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Query(context.Background(), "SELECT id, name FROM customers ORDER BY id")

	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, res.Columns)
	require.Len(t, res.Rows, 2)
	require.False(t, res.Truncated)
}

func TestQueryRejectsWriteStatement(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), "DELETE FROM customers")
	require.Error(t, err)
}

func TestQueryRejectsMultipleStatements(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), "SELECT 1; DROP TABLE customers;")
	require.Error(t, err)
}

func TestQueryTruncatesAtRowLimit(t *testing.T) {
	s, err := Open("file::memory:?cache=shared", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.db.Exec("CREATE TABLE t (n INTEGER)").Error)
	require.NoError(t, s.db.Exec("INSERT INTO t (n) VALUES (1), (2), (3)").Error)

	res, err := s.Query(context.Background(), "SELECT n FROM t ORDER BY n")

	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.True(t, res.Truncated)
}

func TestExecuteSurfacesEngineError(t *testing.T) {
	s := newTestStore(t)

	err := s.Execute(context.Background(), "SELECT * FROM does_not_exist LIMIT 1")
	require.Error(t, err)
}
