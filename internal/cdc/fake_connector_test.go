package cdc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// fakeConnector is a minimal in-memory connector.Connector double used
// to exercise the applier without a real database. Only the methods
// the applier and schema manager actually call do anything meaningful;
// the rest are no-ops satisfying the interface.
type fakeConnector struct {
	mu sync.Mutex

	dialect connector.Dialect
	schema  model.TableSchema
	exists  bool

	rows map[string]map[string]interface{} // keyed by fmt of pk

	insertCalls int
	updateCalls int
	deleteCalls int

	updateErr error // returned by UpdateRow once, then cleared
	insertErr error
	deleteErr error
}

func newFakeConnector(dialect connector.Dialect, schema model.TableSchema, exists bool) *fakeConnector {
	return &fakeConnector{
		dialect: dialect,
		schema:  schema,
		exists:  exists,
		rows:    make(map[string]map[string]interface{}),
	}
}

func (f *fakeConnector) Dialect() connector.Dialect { return f.dialect }

func (f *fakeConnector) Connect(ctx context.Context) (connector.Connector, error) { return f, nil }
func (f *fakeConnector) Disconnect(ctx context.Context) error                     { return nil }
func (f *fakeConnector) Ping(ctx context.Context) error                           { return nil }

func (f *fakeConnector) GetAllTables(ctx context.Context) ([]string, error) {
	return []string{f.schema.Name}, nil
}

func (f *fakeConnector) GetTableSchema(ctx context.Context, table string) (model.TableSchema, error) {
	return f.schema, nil
}

func (f *fakeConnector) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	return f.schema.PrimaryKeys, nil
}

func (f *fakeConnector) TableExists(ctx context.Context, table string) (bool, error) {
	return f.exists, nil
}

func (f *fakeConnector) CreateTable(ctx context.Context, schema model.TableSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = true
	return nil
}

func (f *fakeConnector) AlterTableAddColumn(ctx context.Context, table string, col model.ColumnDefinition) error {
	return nil
}

func pkKey(pk map[string]interface{}) string {
	keys := make([]string, 0, len(pk))
	for k := range pk {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + fmt.Sprint(pk[k]) + ";"
	}
	return key
}

func (f *fakeConnector) InsertBatch(ctx context.Context, table string, rows []model.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return err
	}
	for _, row := range rows {
		m := row.Map()
		pk := make(map[string]interface{}, len(f.schema.PrimaryKeys))
		for _, col := range f.schema.PrimaryKeys {
			pk[col] = m[col]
		}
		f.rows[pkKey(pk)] = m
	}
	return nil
}

func (f *fakeConnector) UpdateRow(ctx context.Context, table string, pk map[string]interface{}, values map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		err := f.updateErr
		f.updateErr = nil
		return err
	}
	key := pkKey(pk)
	if _, ok := f.rows[key]; !ok {
		return connector.WrapOperation(f.dialect, "update_row", table, connector.ErrRowNotFound)
	}
	f.rows[key] = values
	return nil
}

func (f *fakeConnector) DeleteRow(ctx context.Context, table string, pk map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		err := f.deleteErr
		f.deleteErr = nil
		return err
	}
	delete(f.rows, pkKey(pk))
	return nil
}

func (f *fakeConnector) FetchAllRows(ctx context.Context, table string, batchSize int) (connector.RowBatchReader, error) {
	return nil, connector.ErrUnsupported
}

func (f *fakeConnector) GetRowCount(ctx context.Context, table string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeConnector) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]model.Row, error) {
	return nil, connector.ErrUnsupported
}

func (f *fakeConnector) BeginTransaction(ctx context.Context) error    { return nil }
func (f *fakeConnector) CommitTransaction(ctx context.Context) error   { return nil }
func (f *fakeConnector) RollbackTransaction(ctx context.Context) error { return nil }
