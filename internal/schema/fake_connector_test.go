package schema

import (
	"context"
	"sync"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// fakeConnector is a minimal in-memory connector.Connector double that
// counts GetTableSchema calls, used to assert the manager's cache-hit
// invariant.
type fakeConnector struct {
	mu sync.Mutex

	dialect connector.Dialect
	schema  model.TableSchema
	exists  bool

	currentSchema model.TableSchema // what the target currently has, for diffing

	getSchemaCalls int
	alteredColumns []string
}

func newFakeConnector(dialect connector.Dialect, schema model.TableSchema, exists bool) *fakeConnector {
	return &fakeConnector{dialect: dialect, schema: schema, exists: exists, currentSchema: schema}
}

func (f *fakeConnector) Dialect() connector.Dialect                             { return f.dialect }
func (f *fakeConnector) Connect(ctx context.Context) (connector.Connector, error) { return f, nil }
func (f *fakeConnector) Disconnect(ctx context.Context) error                   { return nil }
func (f *fakeConnector) Ping(ctx context.Context) error                         { return nil }

func (f *fakeConnector) GetAllTables(ctx context.Context) ([]string, error) {
	return []string{f.schema.Name}, nil
}

func (f *fakeConnector) GetTableSchema(ctx context.Context, table string) (model.TableSchema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getSchemaCalls++
	return f.currentSchema, nil
}

func (f *fakeConnector) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	return f.schema.PrimaryKeys, nil
}

func (f *fakeConnector) TableExists(ctx context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, nil
}

func (f *fakeConnector) CreateTable(ctx context.Context, schema model.TableSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = true
	f.currentSchema = schema
	return nil
}

func (f *fakeConnector) AlterTableAddColumn(ctx context.Context, table string, col model.ColumnDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alteredColumns = append(f.alteredColumns, col.Name)
	f.currentSchema.AddColumn(col)
	return nil
}

func (f *fakeConnector) InsertBatch(ctx context.Context, table string, rows []model.Row) error {
	return nil
}
func (f *fakeConnector) UpdateRow(ctx context.Context, table string, pk, values map[string]interface{}) error {
	return nil
}
func (f *fakeConnector) DeleteRow(ctx context.Context, table string, pk map[string]interface{}) error {
	return nil
}
func (f *fakeConnector) FetchAllRows(ctx context.Context, table string, batchSize int) (connector.RowBatchReader, error) {
	return nil, connector.ErrUnsupported
}
func (f *fakeConnector) GetRowCount(ctx context.Context, table string) (int64, error) {
	return 0, nil
}
func (f *fakeConnector) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]model.Row, error) {
	return nil, connector.ErrUnsupported
}
func (f *fakeConnector) BeginTransaction(ctx context.Context) error    { return nil }
func (f *fakeConnector) CommitTransaction(ctx context.Context) error   { return nil }
func (f *fakeConnector) RollbackTransaction(ctx context.Context) error { return nil }
