package load

import (
	"context"
	"sync"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// fakeRows is an in-memory table: a schema plus row data, batched into
// fixed-size chunks by FetchAllRows.
type fakeRows struct {
	schema model.TableSchema
	rows   [][]model.Row // already split into batchSize-sized chunks
}

// fakeConnector is a minimal in-memory connector.Connector double for
// exercising the initial-load orchestrator without a real database.
// Connect hands back the same *fakeConnector and counts each call in
// connectionsOpened, so a test can assert that every worker asked for
// its own connection.
type fakeConnector struct {
	mu sync.Mutex

	dialect connector.Dialect
	tables  map[string]*fakeRows

	connectionsOpened int
	insertedBatches   map[string]int
}

func newFakeConnector(dialect connector.Dialect) *fakeConnector {
	return &fakeConnector{
		dialect:         dialect,
		tables:          make(map[string]*fakeRows),
		insertedBatches: make(map[string]int),
	}
}

func (f *fakeConnector) addTable(name string, schema model.TableSchema, rowCount, batchSize int) {
	rows := make([]model.Row, rowCount)
	for i := range rows {
		rows[i] = model.RowFromMap([]string{"id"}, map[string]interface{}{"id": i})
	}
	var batches [][]model.Row
	for len(rows) > 0 {
		n := batchSize
		if n > len(rows) {
			n = len(rows)
		}
		batches = append(batches, rows[:n])
		rows = rows[n:]
	}
	f.tables[name] = &fakeRows{schema: schema, rows: batches}
}

func (f *fakeConnector) Dialect() connector.Dialect { return f.dialect }

func (f *fakeConnector) Connect(ctx context.Context) (connector.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectionsOpened++
	return f, nil
}
func (f *fakeConnector) Disconnect(ctx context.Context) error { return nil }
func (f *fakeConnector) Ping(ctx context.Context) error       { return nil }

func (f *fakeConnector) GetAllTables(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeConnector) GetTableSchema(ctx context.Context, table string) (model.TableSchema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[table]
	if !ok {
		return model.TableSchema{}, connector.ErrTableNotFound
	}
	return t.schema, nil
}

func (f *fakeConnector) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	return []string{"id"}, nil
}

func (f *fakeConnector) TableExists(ctx context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tables[table]
	return ok, nil
}

func (f *fakeConnector) CreateTable(ctx context.Context, schema model.TableSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[schema.Name]; !ok {
		f.tables[schema.Name] = &fakeRows{schema: schema}
	}
	return nil
}

func (f *fakeConnector) AlterTableAddColumn(ctx context.Context, table string, col model.ColumnDefinition) error {
	return nil
}

func (f *fakeConnector) InsertBatch(ctx context.Context, table string, rows []model.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedBatches[table]++
	return nil
}

func (f *fakeConnector) UpdateRow(ctx context.Context, table string, pk, values map[string]interface{}) error {
	return nil
}

func (f *fakeConnector) DeleteRow(ctx context.Context, table string, pk map[string]interface{}) error {
	return nil
}

// fakeBatchReader replays the batches captured for one table at
// construction time, so concurrent readers of the same table never
// share mutable cursor state.
type fakeBatchReader struct {
	batches [][]model.Row
	pos     int
	closed  bool
}

func (r *fakeBatchReader) Next(ctx context.Context) ([]model.Row, bool, error) {
	if r.pos >= len(r.batches) {
		return nil, false, nil
	}
	batch := r.batches[r.pos]
	r.pos++
	return batch, true, nil
}

func (r *fakeBatchReader) Close(ctx context.Context) error {
	r.closed = true
	return nil
}

func (f *fakeConnector) FetchAllRows(ctx context.Context, table string, batchSize int) (connector.RowBatchReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[table]
	if !ok {
		return nil, connector.ErrTableNotFound
	}
	batches := make([][]model.Row, len(t.rows))
	copy(batches, t.rows)
	return &fakeBatchReader{batches: batches}, nil
}

func (f *fakeConnector) GetRowCount(ctx context.Context, table string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[table]
	if !ok {
		return 0, nil
	}
	var count int64
	for _, b := range t.rows {
		count += int64(len(b))
	}
	return count, nil
}

func (f *fakeConnector) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]model.Row, error) {
	return nil, connector.ErrUnsupported
}

func (f *fakeConnector) BeginTransaction(ctx context.Context) error    { return nil }
func (f *fakeConnector) CommitTransaction(ctx context.Context) error   { return nil }
func (f *fakeConnector) RollbackTransaction(ctx context.Context) error { return nil }
