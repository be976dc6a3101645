package metadata

import "fmt"

// Edge is one directed foreign-key reference fromTable.fromColumn ->
// toTable.toColumn.
type Edge struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

// ForeignKeyGraph is the directed graph of FK edges derived from
// SchemaMetadata. Built once at init time and never mutated afterward.
type ForeignKeyGraph struct {
	edges   []Edge
	byTable map[string][]Edge
}

// Edges returns every edge in the graph.
func (g *ForeignKeyGraph) Edges() []Edge {
	return g.edges
}

// From returns the outgoing edges of table.
func (g *ForeignKeyGraph) From(table string) []Edge {
	return g.byTable[table]
}

// JoinCondition returns a SQL join predicate between table1 and table2 if a
// direct FK edge connects them in either direction, or "" if none exists.
func (g *ForeignKeyGraph) JoinCondition(table1, table2 string) string {
	for _, e := range g.byTable[table1] {
		if e.ToTable == table2 {
			return fmt.Sprintf("%s.%s = %s.%s", table1, e.FromColumn, table2, e.ToColumn)
		}
	}
	for _, e := range g.byTable[table2] {
		if e.ToTable == table1 {
			return fmt.Sprintf("%s.%s = %s.%s", table2, e.FromColumn, table1, e.ToColumn)
		}
	}
	return ""
}

// defaultForeignKeys is the hardcoded fallback seed used for any table that
// declares no explicit foreign_keys in its metadata entry. Grounded in
// sql_generator.py's _get_foreign_key_info, which hardcodes this exact map
// for the reference schema (customers, accounts, branches, employees,
// transactions) rather than deriving it from the DDL.
var defaultForeignKeys = map[string][]ForeignKey{
	"branches": {
		{Column: "manager_id", RefTable: "employees", RefColumn: "id"},
	},
	"customers": {
		{Column: "branch_id", RefTable: "branches", RefColumn: "id"},
	},
	"employees": {
		{Column: "branch_id", RefTable: "branches", RefColumn: "id"},
	},
	"accounts": {
		{Column: "customer_id", RefTable: "customers", RefColumn: "id"},
		{Column: "branch_id", RefTable: "branches", RefColumn: "id"},
	},
	"transactions": {
		{Column: "account_id", RefTable: "accounts", RefColumn: "id"},
		{Column: "employee_id", RefTable: "employees", RefColumn: "id"},
	},
}

// DefaultForeignKeys returns the hardcoded fallback FK seed for table, or nil
// if table has no seeded entry.
func DefaultForeignKeys(table string) []ForeignKey {
	return defaultForeignKeys[table]
}

// buildForeignKeyGraph derives the graph from explicit metadata, falling
// back to defaultForeignKeys for any table that declares none. Edges that
// would reference an unknown table or column are dropped, never added
// (invariant: "Foreign-key edges never reference unknown tables/columns").
func buildForeignKeyGraph(tables map[string]Table) *ForeignKeyGraph {
	g := &ForeignKeyGraph{byTable: map[string][]Edge{}}
	for name, t := range tables {
		fks := t.ForeignKeys
		if len(fks) == 0 {
			for _, fk := range defaultForeignKeys[name] {
				fks = append(fks, ForeignKey{Column: fk.Column, RefTable: fk.RefTable, RefColumn: fk.RefColumn})
			}
		}
		for _, fk := range fks {
			if !tableHasColumn(tables, name, fk.Column) {
				continue
			}
			if !tableHasColumn(tables, fk.RefTable, fk.RefColumn) {
				continue
			}
			e := Edge{FromTable: name, FromColumn: fk.Column, ToTable: fk.RefTable, ToColumn: fk.RefColumn}
			g.edges = append(g.edges, e)
			g.byTable[name] = append(g.byTable[name], e)
		}
	}
	return g
}

func tableHasColumn(tables map[string]Table, table, column string) bool {
	t, ok := tables[table]
	if !ok {
		return false
	}
	_, ok = t.Columns[column]
	return ok
}
