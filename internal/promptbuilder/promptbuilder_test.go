package promptbuilder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nl2sql/pipeline/internal/metadata"
	"github.com/nl2sql/pipeline/internal/planner"
	"github.com/nl2sql/pipeline/internal/retriever"
)

func testMeta() *metadata.Store {
	return metadata.New(map[string]metadata.Table{
		"branches": {
			Description: "Bank branches",
			Columns: map[string]metadata.Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"manager_id": {Type: "integer"},
			},
		},
		"employees": {
			Description: "Bank employees",
			Columns: map[string]metadata.Column{
				"id":       {Type: "integer", PrimaryKey: true},
				"position": {Type: "text", DistinctValues: []string{"Teller", "Branch Manager"}},
			},
		},
	})
}

func TestBuildProducesValidJSON(t *testing.T) {
	meta := testMeta()
	b := New(meta, NewHistory(3), 0)

	plan := planner.Plan{
		Question:       "Who manages each branch?",
		DetectedTables: []string{"branches", "employees"},
		Capabilities:   []string{"join_employees"},
	}
	bundle := retriever.Bundle{
		SchemaChunks: []string{"Table 'branches': Bank branches"},
		TablesFound:  []string{"branches", "employees"},
	}

	out, err := b.Build(plan.Question, plan, bundle, nil)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Contains(t, parsed, "task")
	require.Contains(t, parsed, "schema_context")
	require.Contains(t, parsed, "reasoning")
}

func TestBuildIncludesErrorContext(t *testing.T) {
	meta := testMeta()
	b := New(meta, NewHistory(3), 0)
	plan := planner.Plan{Question: "List branches", DetectedTables: []string{"branches"}}

	out, err := b.Build(plan.Question, plan, retriever.Bundle{}, &ErrorContext{
		Kind:       "column_not_found",
		Message:    "no such column: foo",
		Suggestion: "Verify column names and table aliases",
	})
	require.NoError(t, err)
	require.Contains(t, out, "error_context")
	require.Contains(t, out, "no such column: foo")
}

func TestHistoryCapsAtMax(t *testing.T) {
	h := NewHistory(2)
	h.Add(HistoryEntry{Question: "q1"})
	h.Add(HistoryEntry{Question: "q2"})
	h.Add(HistoryEntry{Question: "q3"})

	recent := h.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "q2", recent[0].Question)
	require.Equal(t, "q3", recent[1].Question)
}

func TestOutputJSONSchemaDescribesSQLQuery(t *testing.T) {
	schema := OutputJSONSchema()
	require.NotNil(t, schema)

	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	require.Contains(t, string(raw), "SQLQuery")
	require.Contains(t, string(raw), "Reasoning")
}

func TestOutputJSONSchemaIsCached(t *testing.T) {
	require.Same(t, OutputJSONSchema(), OutputJSONSchema())
}
