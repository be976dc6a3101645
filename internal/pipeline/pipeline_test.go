package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nl2sql/pipeline/internal/generator"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/retriever"
	"github.com/nl2sql/pipeline/internal/sqlstore"
	"github.com/nl2sql/pipeline/internal/summarizer"
	"github.com/nl2sql/pipeline/internal/validator"
)

type fakePlanner struct{ plan planner.Plan }

func (f fakePlanner) Analyze(string) planner.Plan { return f.plan }

type fakeRetriever struct{ bundle retriever.Bundle }

func (f fakeRetriever) Fetch(context.Context, string, planner.Plan) retriever.Bundle { return f.bundle }

type fakeGenerator struct {
	generateResult generator.Result
	repairResults  []generator.Result
	repairCalls    int
}

func (f *fakeGenerator) Generate(context.Context, string, generator.GenContext) generator.Result {
	return f.generateResult
}

func (f *fakeGenerator) Repair(context.Context, string, generator.GenContext, string) generator.Result {
	i := f.repairCalls
	f.repairCalls++
	if i < len(f.repairResults) {
		return f.repairResults[i]
	}
	return generator.Result{SQL: "SELECT 1;", Source: "exhausted"}
}

type fakeValidator struct {
	results []validator.Result
	calls   int
}

func (f *fakeValidator) Validate(context.Context, string) validator.Result {
	i := f.calls
	f.calls++
	if i < len(f.results) {
		return f.results[i]
	}
	return f.results[len(f.results)-1]
}

type fakeExecutor struct {
	results []sqlstore.QueryResult
	errs    []error
	calls   int
}

func (f *fakeExecutor) Query(context.Context, string) (sqlstore.QueryResult, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var res sqlstore.QueryResult
	if i < len(f.results) {
		res = f.results[i]
	}
	return res, err
}

type fakeSummarizer struct{ result summarizer.Result }

func (f fakeSummarizer) Summarize(string, bool, string, []map[string]any) summarizer.Result {
	return f.result
}

func TestRunReturnsSuccessResultOnFirstPass(t *testing.T) {
	orch, err := New(Config{
		Planner:   fakePlanner{plan: planner.Plan{DetectedTables: []string{"customers"}, Capabilities: []string{"aggregate"}}},
		Retriever: fakeRetriever{},
		Generator: &fakeGenerator{generateResult: generator.Result{SQL: "SELECT id FROM customers", Source: "llm"}},
		Validator: &fakeValidator{results: []validator.Result{{IsValid: true, TablesUsed: []string{"customers"}}}},
		Executor: &fakeExecutor{results: []sqlstore.QueryResult{{
			Columns: []string{"id"},
			Rows:    []map[string]any{{"id": 1}},
		}}},
		Summarizer: fakeSummarizer{result: summarizer.Result{Summary: "ok", Suggestions: []string{"a"}}},
		MaxRetries: 2,
	})
	require.NoError(t, err)

	res := orch.Run(context.Background(), "list customers", nil)

	require.True(t, res.Success)
	require.Equal(t, "SELECT id FROM customers", res.SQL)
	require.Equal(t, "ok", res.Summary)
	require.NotEmpty(t, res.RequestID)
	require.Equal(t, 0, res.Diagnostics.Retries)
}

func TestRunRepairsOnValidatorFailureThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{
		generateResult: generator.Result{SQL: "DROP TABLE customers", Source: "llm"},
		repairResults:  []generator.Result{{SQL: "SELECT id FROM customers", Source: "llm"}},
	}
	val := &fakeValidator{results: []validator.Result{
		{IsValid: false, Error: "forbidden keyword 'DROP' found in query"},
		{IsValid: true},
	}}
	orch, err := New(Config{
		Planner:    fakePlanner{plan: planner.Plan{DetectedTables: []string{"customers"}}},
		Retriever:  fakeRetriever{},
		Generator:  gen,
		Validator:  val,
		Executor:   &fakeExecutor{results: []sqlstore.QueryResult{{Columns: []string{"id"}, Rows: []map[string]any{{"id": 1}}}}},
		Summarizer: fakeSummarizer{result: summarizer.Result{Summary: "ok"}},
		MaxRetries: 2,
	})
	require.NoError(t, err)

	res := orch.Run(context.Background(), "list customers", nil)

	require.True(t, res.Success)
	require.Equal(t, "SELECT id FROM customers", res.SQL)
	require.Equal(t, 1, res.Diagnostics.Retries)
	require.Equal(t, 1, gen.repairCalls)
}

func TestRunFailsAfterExhaustingRetries(t *testing.T) {
	gen := &fakeGenerator{
		generateResult: generator.Result{SQL: "SELECT 1;", Source: "exhausted"},
		repairResults: []generator.Result{
			{SQL: "SELECT 1;", Source: "exhausted"},
			{SQL: "SELECT 1;", Source: "exhausted"},
		},
	}
	val := &fakeValidator{results: []validator.Result{
		{IsValid: true},
	}}
	orch, err := New(Config{
		Planner:   fakePlanner{plan: planner.Plan{DetectedTables: []string{"customers"}}},
		Retriever: fakeRetriever{},
		Generator: gen,
		Validator: val,
		Executor: &fakeExecutor{
			errs: []error{errors.New("database is locked"), errors.New("database is locked"), errors.New("database is locked")},
		},
		Summarizer: fakeSummarizer{result: summarizer.Result{Summary: "unused"}},
		MaxRetries: 2,
	})
	require.NoError(t, err)

	res := orch.Run(context.Background(), "list customers", nil)

	require.False(t, res.Success)
	require.Equal(t, "database is locked", res.Error)
	require.Equal(t, 3, res.Diagnostics.Retries)
	require.Empty(t, res.Summary)
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(Config{Planner: fakePlanner{}})
	require.Error(t, err)
}
