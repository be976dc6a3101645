// Package metadata loads and serves the canonical schema description:
// tables, columns, types, enumerated domains, and the foreign-key graph
// derived from it.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
)

// Column describes one column of one table, as declared in the metadata file.
type Column struct {
	Type           string   `json:"type"`
	PrimaryKey     bool     `json:"primary_key,omitempty"`
	Required       bool     `json:"required,omitempty"`
	Default        any      `json:"default,omitempty"`
	Pattern        string   `json:"pattern,omitempty"`
	DistinctValues []string `json:"distinct_values,omitempty"`
	SampleValues   []any    `json:"sample_values,omitempty"`
}

// Table describes one table: a free-text description plus its columns.
type Table struct {
	Description string            `json:"description"`
	Columns     map[string]Column `json:"columns"`
	// ForeignKeys is an optional explicit declaration of this table's
	// outgoing FK edges. When absent, DefaultForeignKeys supplies a seed.
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// ForeignKey is one directed edge fromTable.col -> toTable.col.
type ForeignKey struct {
	Column     string `json:"column"`
	RefTable   string `json:"ref_table"`
	RefColumn  string `json:"ref_column"`
}

// schemaFile mirrors the on-disk JSON shape: {"tables": {...}}.
type schemaFile struct {
	Tables map[string]Table `json:"tables"`
}

// Store is the process-wide, read-only, immutable-after-init handle onto
// SchemaMetadata and its derived ForeignKeyGraph. Safe for concurrent readers.
type Store struct {
	tables map[string]Table
	fkg    *ForeignKeyGraph
}

// Load reads a metadata JSON file from path and builds a Store. A missing or
// malformed file is a FatalConfigError per spec: callers should abort process
// init on error rather than retry per-request.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file %q: %w", path, err)
	}
	var sf schemaFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse metadata file %q: %w", path, err)
	}
	if len(sf.Tables) == 0 {
		return nil, fmt.Errorf("metadata file %q declares no tables", path)
	}
	return New(sf.Tables), nil
}

// New builds a Store directly from an in-memory table map, deriving the
// foreign-key graph (explicit edges first, DefaultForeignKeys seed for any
// table that declares none).
func New(tables map[string]Table) *Store {
	s := &Store{tables: tables}
	s.fkg = buildForeignKeyGraph(tables)
	return s
}

// TableNames returns all known table names, sorted.
func (s *Store) TableNames() []string {
	names := lo.Keys(s.tables)
	sort.Strings(names)
	return names
}

// HasTable reports whether table is known.
func (s *Store) HasTable(table string) bool {
	_, ok := s.tables[table]
	return ok
}

// Table returns the Table metadata, or false if unknown.
func (s *Store) Table(table string) (Table, bool) {
	t, ok := s.tables[table]
	return t, ok
}

// Columns returns the column names of table, sorted, or nil if unknown.
func (s *Store) Columns(table string) []string {
	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	names := lo.Keys(t.Columns)
	sort.Strings(names)
	return names
}

// HasColumn reports whether table.column is known.
func (s *Store) HasColumn(table, column string) bool {
	t, ok := s.tables[table]
	if !ok {
		return false
	}
	_, ok = t.Columns[column]
	return ok
}

// Column returns column metadata for table.column, or false if unknown.
func (s *Store) Column(table, column string) (Column, bool) {
	t, ok := s.tables[table]
	if !ok {
		return Column{}, false
	}
	c, ok := t.Columns[column]
	return c, ok
}

// DistinctValues returns the enumerated domain of table.column, or nil if the
// column has none declared.
func (s *Store) DistinctValues(table, column string) []string {
	c, ok := s.Column(table, column)
	if !ok {
		return nil
	}
	return c.DistinctValues
}

// ValidateValue reports whether value belongs to table.column's enumerated
// domain. A column with no declared domain accepts any value.
func (s *Store) ValidateValue(table, column string, value string) bool {
	domain := s.DistinctValues(table, column)
	if len(domain) == 0 {
		return true
	}
	return lo.Contains(domain, value)
}

// ForeignKeyGraph returns the process-wide, immutable foreign-key graph.
func (s *Store) ForeignKeyGraph() *ForeignKeyGraph {
	return s.fkg
}

// Description returns table's free-text description, or "" if unknown.
func (s *Store) Description(table string) string {
	t, ok := s.tables[table]
	if !ok {
		return ""
	}
	return t.Description
}
