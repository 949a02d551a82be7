package model

import "time"

// OperationType is the kind of row mutation a ChangeEvent describes.
type OperationType string

const (
	OpCreate OperationType = "CREATE"
	OpUpdate OperationType = "UPDATE"
	OpDelete OperationType = "DELETE"
	OpRead   OperationType = "READ"
)

// ChangeEvent is the decoded form of one upstream CDC envelope (see
// internal/bridge).
//
// Expected shapes: CREATE and READ carry After with Before nil; UPDATE
// carries both; DELETE carries Before with After nil. Neither this type
// nor the bridge decoder, which copies before/after as received,
// checks them.
type ChangeEvent struct {
	Operation      OperationType
	TableName      string
	Before         map[string]interface{}
	After          map[string]interface{}
	SourceMetadata map[string]interface{}
	Timestamp      *time.Time
	TransactionID  string
}

// PrimaryKeyValues extracts the values of the named primary key
// columns from the event, preferring After when present and falling
// back to Before. ok is false if pkColumns is empty, or if any key
// column is missing from whichever map was chosen.
func (e *ChangeEvent) PrimaryKeyValues(pkColumns []string) (values map[string]interface{}, ok bool) {
	if len(pkColumns) == 0 {
		return nil, false
	}
	source := e.After
	if source == nil {
		source = e.Before
	}
	if source == nil {
		return nil, false
	}
	values = make(map[string]interface{}, len(pkColumns))
	for _, col := range pkColumns {
		v, present := source[col]
		if !present {
			return nil, false
		}
		values[col] = v
	}
	return values, true
}
