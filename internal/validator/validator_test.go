package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nl2sql/pipeline/internal/metadata"
)

func testMeta() *metadata.Store {
	return metadata.New(map[string]metadata.Table{
		"customers": {
			Columns: map[string]metadata.Column{
				"id":   {Type: "integer", PrimaryKey: true},
				"name": {Type: "text"},
			},
		},
		"accounts": {
			Columns: map[string]metadata.Column{
				"id":          {Type: "integer", PrimaryKey: true},
				"customer_id": {Type: "integer"},
				"type":        {Type: "text", DistinctValues: []string{"checking", "savings"}},
			},
		},
	})
}

type fakeExecutor struct {
	err   error
	calls []string
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) error {
	f.calls = append(f.calls, sql)
	return f.err
}

func TestValidateRejectsDropTable(t *testing.T) {
	exec := &fakeExecutor{}
	v := New(testMeta(), exec)

	res := v.Validate(context.Background(), "DROP TABLE customers")

	require.False(t, res.IsValid)
	require.Contains(t, res.Error, "DROP")
	require.Empty(t, exec.calls, "smoke executor must never run on a statement rejected earlier")
}

func TestValidateRejectsNonSelectStatement(t *testing.T) {
	v := New(testMeta(), &fakeExecutor{})
	res := v.Validate(context.Background(), "UPDATE accounts SET customer_id = 1")
	require.False(t, res.IsValid)
}

func TestValidateAllowsConstantExpressionSelect(t *testing.T) {
	v := New(testMeta(), &fakeExecutor{})
	res := v.Validate(context.Background(), "SELECT 1")

	require.True(t, res.IsValid)
	require.Empty(t, res.TablesUsed)
	require.Contains(t, res.Warnings, "no known tables referenced")
}

func TestValidateAcceptsKnownTables(t *testing.T) {
	exec := &fakeExecutor{}
	v := New(testMeta(), exec)

	res := v.Validate(context.Background(), "SELECT c.name FROM customers c JOIN accounts a ON a.customer_id = c.id")

	require.True(t, res.IsValid)
	require.ElementsMatch(t, []string{"customers", "accounts"}, res.TablesUsed)
	require.Len(t, exec.calls, 1)
	require.Contains(t, exec.calls[0], "LIMIT 1")
}

func TestValidateDoesNotAppendDuplicateLimit(t *testing.T) {
	exec := &fakeExecutor{}
	v := New(testMeta(), exec)

	v.Validate(context.Background(), "SELECT * FROM customers LIMIT 5")

	require.Len(t, exec.calls, 1)
	require.Equal(t, "SELECT * FROM customers LIMIT 5", exec.calls[0])
}

func TestValidateDoesNotFlagKeywordInsideStringLiteral(t *testing.T) {
	v := New(testMeta(), &fakeExecutor{})
	res := v.Validate(context.Background(), "SELECT * FROM customers WHERE name = 'Update Heights Branch'")
	require.True(t, res.IsValid)
}

func TestValidateDoesNotFlagKeywordAsSubstringOfIdentifier(t *testing.T) {
	v := New(testMeta(), &fakeExecutor{})
	res := v.Validate(context.Background(), "SELECT updated_at FROM customers")
	require.True(t, res.IsValid)
}

func TestValidateRejectsLiteralOutsideEnumeratedDomain(t *testing.T) {
	v := New(testMeta(), &fakeExecutor{})

	res := v.Validate(context.Background(), "SELECT * FROM accounts WHERE type = 'frozen'")

	require.False(t, res.IsValid)
	require.Contains(t, res.Error, "type")
	require.Contains(t, res.Error, "checking")
	kind, _ := Classify(res.Error)
	require.Equal(t, KindEnumViolation, kind)
}

func TestValidateAllowsLiteralWithinEnumeratedDomain(t *testing.T) {
	exec := &fakeExecutor{}
	v := New(testMeta(), exec)

	res := v.Validate(context.Background(), "SELECT * FROM accounts WHERE type = 'checking'")

	require.True(t, res.IsValid)
}

func TestValidatePropagatesExecutorError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("no such column: bogus")}
	v := New(testMeta(), exec)

	res := v.Validate(context.Background(), "SELECT bogus FROM customers")

	require.False(t, res.IsValid)
	kind, _ := Classify(res.Error)
	require.Equal(t, KindColumnNotFound, kind)
}

func TestClassifyTaxonomy(t *testing.T) {
	cases := []struct {
		msg  string
		kind ErrorKind
	}{
		{"no such table: orders", KindTableNotFound},
		{"no such column: foo", KindColumnNotFound},
		{"ambiguous column name: id", KindAmbiguousColumn},
		{"syntax error near SELECT", KindSyntax},
		{"disk I/O error", KindUnknown},
	}
	for _, c := range cases {
		kind, suggestion := Classify(c.msg)
		require.Equal(t, c.kind, kind)
		require.NotEmpty(t, suggestion)
	}
}
