package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTables() map[string]Table {
	return map[string]Table{
		"customers": {
			Description: "Bank customers",
			Columns: map[string]Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"first_name": {Type: "text"},
				"last_name":  {Type: "text"},
				"branch_id":  {Type: "integer"},
			},
		},
		"branches": {
			Description: "Bank branches",
			Columns: map[string]Column{
				"id":         {Type: "integer", PrimaryKey: true},
				"name":       {Type: "text"},
				"manager_id": {Type: "integer"},
			},
		},
		"employees": {
			Description: "Bank employees",
			Columns: map[string]Column{
				"id":       {Type: "integer", PrimaryKey: true},
				"position": {Type: "text", DistinctValues: []string{"Teller", "Branch Manager"}},
			},
		},
		"accounts": {
			Description: "Customer accounts",
			Columns: map[string]Column{
				"id":          {Type: "integer", PrimaryKey: true},
				"customer_id": {Type: "integer"},
				"branch_id":   {Type: "integer"},
				"type":        {Type: "text", DistinctValues: []string{"checking", "savings"}},
			},
		},
		"transactions": {
			Description: "Account transactions",
			Columns: map[string]Column{
				"id":          {Type: "integer", PrimaryKey: true},
				"account_id":  {Type: "integer"},
				"employee_id": {Type: "integer"},
			},
		},
	}
}

func TestStoreBasics(t *testing.T) {
	s := New(sampleTables())
	require.ElementsMatch(t, []string{"accounts", "branches", "customers", "employees", "transactions"}, s.TableNames())
	require.True(t, s.HasTable("customers"))
	require.False(t, s.HasTable("widgets"))
	require.True(t, s.HasColumn("accounts", "type"))
	require.False(t, s.HasColumn("accounts", "nope"))
}

func TestValidateValue(t *testing.T) {
	s := New(sampleTables())
	require.True(t, s.ValidateValue("accounts", "type", "checking"))
	require.False(t, s.ValidateValue("accounts", "type", "crypto"))
	// A column with no declared domain accepts anything.
	require.True(t, s.ValidateValue("customers", "first_name", "Ada"))
}

func TestForeignKeyGraphDefaultSeed(t *testing.T) {
	s := New(sampleTables())
	g := s.ForeignKeyGraph()

	cond := g.JoinCondition("branches", "employees")
	require.Equal(t, "branches.manager_id = employees.id", cond)

	cond = g.JoinCondition("accounts", "customers")
	require.Equal(t, "accounts.customer_id = customers.id", cond)

	require.Equal(t, "", g.JoinCondition("branches", "transactions"))
}

func TestForeignKeyGraphDropsUnknownEdges(t *testing.T) {
	tables := sampleTables()
	bad := tables["customers"]
	bad.ForeignKeys = []ForeignKey{
		{Column: "branch_id", RefTable: "nonexistent_table", RefColumn: "id"},
	}
	tables["customers"] = bad

	s := New(tables)
	for _, e := range s.ForeignKeyGraph().Edges() {
		require.True(t, s.HasTable(e.ToTable), "edge referenced unknown table %q", e.ToTable)
	}
}
