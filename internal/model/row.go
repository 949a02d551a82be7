package model

// Row is an ordered column-name-to-value mapping, as produced by a
// streaming read batch or accepted by insert_batch. Order matters for
// connectors that build positional placeholders; Columns and Values
// are kept as parallel slices rather than a map so that order survives
// round-trips through the connector layer.
//
// Values are whatever the connector's driver returns, with no further
// coercion: pgx's Rows.Values() for Postgres, and database/sql scanning
// into interface{} for MySQL (which yields []byte, copied, for most
// column types). They are not normalized into a common set of types.
type Row struct {
	Columns []string
	Values  []interface{}
}

// NewRow builds a Row from parallel column/value slices of equal
// length.
func NewRow(columns []string, values []interface{}) Row {
	return Row{Columns: columns, Values: values}
}

// Get returns the value for the named column and whether it was
// present.
func (r Row) Get(column string) (interface{}, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a plain map, discarding column order, for
// callers that only need an unordered lookup.
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// RowFromMap builds a Row from an unordered map, ordered by the given
// column list. Columns present in order but absent from m are given a
// nil value.
func RowFromMap(order []string, m map[string]interface{}) Row {
	values := make([]interface{}, len(order))
	for i, c := range order {
		values[i] = m[c]
	}
	return Row{Columns: append([]string(nil), order...), Values: values}
}
