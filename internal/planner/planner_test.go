package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nl2sql/pipeline/internal/metadata"
)

func testStore() *metadata.Store {
	return metadata.New(map[string]metadata.Table{
		"customers": {
			Description: "Bank customers",
			Columns: map[string]metadata.Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"first_name": {Type: "text"},
				"last_name":  {Type: "text"},
				"branch_id":  {Type: "integer"},
			},
		},
		"branches": {
			Description: "Bank branches",
			Columns: map[string]metadata.Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"name":       {Type: "text"},
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
		"accounts": {
			Description: "Customer accounts",
			Columns: map[string]metadata.Column{
				"id":          {Type: "integer", PrimaryKey: true},
				"customer_id": {Type: "integer"},
				"branch_id":   {Type: "integer"},
				"balance":     {Type: "real"},
				"type":        {Type: "text", DistinctValues: []string{"checking", "savings"}},
				"status":      {Type: "text", DistinctValues: []string{"active", "closed"}},
			},
		},
		"transactions": {
			Description: "Account transactions",
			Columns: map[string]metadata.Column{
				"id":          {Type: "integer", PrimaryKey: true},
				"account_id":  {Type: "integer"},
				"employee_id": {Type: "integer"},
				"type":        {Type: "text", DistinctValues: []string{"deposit", "withdrawal"}},
			},
		},
	})
}

func TestAnalyzeEmptyQuestionReturnsAllTables(t *testing.T) {
	p := New(testStore())
	plan := p.Analyze("   ")
	require.ElementsMatch(t, p.meta.TableNames(), plan.DetectedTables)
	require.Empty(t, plan.Capabilities)
	require.Empty(t, plan.Clarifications)
}

// S1 — "List all branches and their managers."
func TestS1DetectsBranchesAndJoinEmployees(t *testing.T) {
	p := New(testStore())
	plan := p.Analyze("List all branches and their managers.")
	require.Contains(t, plan.DetectedTables, "branches")
	require.Contains(t, plan.Capabilities, "join_employees")
}

// S3 — "Show me our wealthy customers." expects a min_balance clarification
// defaulting to 20000.
func TestS3WealthyClarifiesMinBalance(t *testing.T) {
	p := New(testStore())
	plan := p.Analyze("Show me our wealthy customers.")
	require.Len(t, plan.Clarifications, 1)
	c := plan.Clarifications[0]
	require.Equal(t, "min_balance", c.Field)
	require.Equal(t, "number", c.Type)
	require.Equal(t, 20000, c.Default)
}

func TestNumericThresholdSuppressesClarification(t *testing.T) {
	p := New(testStore())
	plan := p.Analyze("Show me high balance customers with balance over 50000")
	for _, c := range plan.Clarifications {
		require.NotEqual(t, "min_balance", c.Field)
	}
}

func TestFollowUpsCappedAtFour(t *testing.T) {
	p := New(testStore())
	plan := p.Analyze("Show me branch transactions and account balances and employee salaries")
	require.LessOrEqual(t, len(plan.FollowUps), 4)
}

func TestNoMatchFallsBackToAllTables(t *testing.T) {
	p := New(testStore())
	plan := p.Analyze("Show me something totally unrelated to any entity")
	require.ElementsMatch(t, p.meta.TableNames(), plan.DetectedTables)
}
