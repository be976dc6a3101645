package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nl2sql/pipeline/internal/llm"
	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/promptbuilder"
	"github.com/nl2sql/pipeline/internal/retriever"
	"github.com/nl2sql/pipeline/internal/validator"
)

func testMeta() *metadata.Store {
	return metadata.New(map[string]metadata.Table{
		"customers": {
			Columns: map[string]metadata.Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"first_name": {Type: "text"},
				"last_name":  {Type: "text"},
			},
		},
		"branches": {
			Columns: map[string]metadata.Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"name":       {Type: "text"},
				"manager_id": {Type: "integer"},
			},
		},
		"employees": {
			Columns: map[string]metadata.Column{
				"id":       {Type: "integer", PrimaryKey: true},
				"name":     {Type: "text"},
				"position": {Type: "text"},
			},
		},
		"accounts": {
			Columns: map[string]metadata.Column{
				"id":          {Type: "integer", PrimaryKey: true},
				"customer_id": {Type: "integer"},
				"type":        {Type: "text", DistinctValues: []string{"checking", "savings"}},
				"status":      {Type: "text", DistinctValues: []string{"active", "closed"}},
			},
		},
	})
}

type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, prompt string, opts llm.TextOptions) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", llm.ErrUnavailable
}

func (s *scriptedLLM) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, llm.ErrUnavailable
}

func newGenerator(t *testing.T, responses ...string) (*Generator, *scriptedLLM) {
	t.Helper()
	meta := testMeta()
	builder := promptbuilder.New(meta, promptbuilder.NewHistory(3), 0)
	v := validator.New(meta, nil)
	mock := &scriptedLLM{responses: responses}
	return New(mock, builder, v, meta, 3, nil), mock
}

func TestGenerateSucceedsOnFirstLLMAttempt(t *testing.T) {
	g, _ := newGenerator(t, `{"SQLQuery": "SELECT id FROM customers", "Suggestion": "lists customers"}`)

	res := g.Generate(context.Background(), "list customers", GenContext{Plan: planner.Plan{DetectedTables: []string{"customers"}}})

	require.Equal(t, "SELECT id FROM customers", res.SQL)
	require.Equal(t, "llm", res.Source)
	require.Equal(t, 1, res.Attempts)
}

func TestGenerateStripsMarkdownFence(t *testing.T) {
	g, _ := newGenerator(t, "```json\n{\"SQLQuery\": \"SELECT id FROM customers\", \"Suggestion\": \"ok\"}\n```")

	res := g.Generate(context.Background(), "list customers", GenContext{Plan: planner.Plan{DetectedTables: []string{"customers"}}})

	require.Equal(t, "SELECT id FROM customers", res.SQL)
}

func TestGenerateFallsBackToPatternOnRepeatedInvalidSQL(t *testing.T) {
	g, _ := newGenerator(t,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
	)

	res := g.Generate(context.Background(), "List all branches and their managers", GenContext{
		Plan: planner.Plan{DetectedTables: []string{"branches", "employees"}},
	})

	require.Equal(t, "pattern_fallback", res.Source)
	require.Contains(t, res.SQL, "branches")
}

func TestGenerateFallsBackToSelect1WhenNothingMatches(t *testing.T) {
	g, _ := newGenerator(t,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
	)

	res := g.Generate(context.Background(), "unrelated question", GenContext{
		Plan: planner.Plan{DetectedTables: []string{"customers"}},
	})

	require.Equal(t, "SELECT 1;", res.SQL)
	require.Equal(t, "exhausted", res.Source)
}

func TestRepairUsesFewerAttemptsAndIncludesHint(t *testing.T) {
	g, mock := newGenerator(t, `{"SQLQuery": "SELECT first_name, last_name FROM customers", "Suggestion": "ok"}`)

	res := g.Repair(context.Background(), "full names", GenContext{
		Plan: planner.Plan{DetectedTables: []string{"customers"}},
	}, "no such column: full_name")

	require.Equal(t, "llm", res.Source)
	require.Equal(t, 1, mock.calls)
	require.Contains(t, res.SQL, "first_name")
	require.Contains(t, mock.prompts[0], "no such column: full_name")

	bad, badMock := newGenerator(t,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
		`{"SQLQuery": "DROP TABLE customers", "Suggestion": "bad"}`,
	)
	bad.Repair(context.Background(), "full names", GenContext{
		Plan: planner.Plan{DetectedTables: []string{"customers"}},
	}, "no such column: full_name")
	require.Equal(t, 2, badMock.calls)
}

type columnRejectingExecutor struct{ badColumn string }

func (c columnRejectingExecutor) Execute(ctx context.Context, sql string) error {
	if strings.Contains(sql, c.badColumn) {
		return errors.New("no such column: " + c.badColumn)
	}
	return nil
}

func TestHeuristicRepairStripsProblematicColumn(t *testing.T) {
	meta := testMeta()
	builder := promptbuilder.New(meta, promptbuilder.NewHistory(3), 0)
	v := validator.New(meta, columnRejectingExecutor{badColumn: "full_name"})
	mock := &scriptedLLM{responses: []string{
		`{"SQLQuery": "SELECT full_name, id FROM customers", "Suggestion": "bad col"}`,
		`{"SQLQuery": "SELECT full_name, id FROM customers", "Suggestion": "bad col"}`,
	}}
	g := New(mock, builder, v, meta, 2, nil)

	res := g.Generate(context.Background(), "list customer ids", GenContext{
		Plan: planner.Plan{DetectedTables: []string{"customers"}},
	})

	require.Equal(t, "heuristic_repair", res.Source)
	require.NotContains(t, res.SQL, "full_name")
	require.Contains(t, res.SQL, "id")
}
