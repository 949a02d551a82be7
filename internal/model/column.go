// Package model defines the dialect-neutral types shared by every
// connector, the schema converter, the schema manager, and the CDC
// applier: column and table schemas, change events, and run
// statistics.
package model

// ColumnDefinition describes one column of a table, independent of
// source or target dialect. DataType carries the dialect-tagged SQL
// type string (e.g. "VARCHAR(255)", "TIMESTAMP(6)") rather than a
// parsed representation, since the converter operates on the string
// form directly (see internal/schema).
//
// IsPrimaryKey does not by itself force Nullable to false; the
// not-null-if-primary-key invariant is enforced when DDL is emitted,
// not on the record, so a column freshly discovered from a source
// that allows nullable primary keys (rare, but not impossible for a
// hand-edited schema) round-trips faithfully until conversion time.
type ColumnDefinition struct {
	Name         string
	DataType     string
	Nullable     bool
	Default      *string
	IsPrimaryKey bool
}

// TableSchema is the ordered column list and primary key of one table.
// Column order is significant: positional inserts rely on it matching
// declaration order.
type TableSchema struct {
	Name        string
	Columns     []ColumnDefinition
	PrimaryKeys []string
	Indexes     []IndexDefinition
}

// IndexDefinition describes a secondary index. The converter and
// manager do not currently propagate indexes across dialects; this
// type exists so a connector can report what it found without losing
// the information.
type IndexDefinition struct {
	Name    string
	Columns []string
	Unique  bool
}

// NewTableSchema builds a TableSchema from an ordered column list and
// a primary key list, marking IsPrimaryKey on every column whose name
// appears in primaryKeys. Columns not named in primaryKeys are left
// untouched.
func NewTableSchema(name string, columns []ColumnDefinition, primaryKeys []string) TableSchema {
	pkSet := make(map[string]struct{}, len(primaryKeys))
	for _, pk := range primaryKeys {
		pkSet[pk] = struct{}{}
	}
	cols := make([]ColumnDefinition, len(columns))
	for i, c := range columns {
		if _, ok := pkSet[c.Name]; ok {
			c.IsPrimaryKey = true
		}
		cols[i] = c
	}
	return TableSchema{
		Name:        name,
		Columns:     cols,
		PrimaryKeys: append([]string(nil), primaryKeys...),
	}
}

// GetColumn returns the first column with the given name, and whether
// one was found.
func (t *TableSchema) GetColumn(name string) (ColumnDefinition, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// AddColumn appends col unless a column with the same name already
// exists, in which case it is a no-op.
func (t *TableSchema) AddColumn(col ColumnDefinition) {
	if _, ok := t.GetColumn(col.Name); ok {
		return
	}
	t.Columns = append(t.Columns, col)
}

// ColumnNames returns the names of every column in declaration order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
