package connector

import (
	"context"

	"github.com/heterosync/dbsync/internal/model"
)

// RowBatchReader is the lazy, finite, non-restartable sequence of row
// batches returned by FetchAllRows. Each call to Next blocks until the
// next batch is available, the source is exhausted, or ctx is done.
// The caller must call Close exactly once, on every exit path,
// including early abandonment.
type RowBatchReader interface {
	// Next returns the next batch of rows. ok is false once the
	// underlying cursor is exhausted; err is non-nil only on a read
	// failure, in which case ok is also false.
	Next(ctx context.Context) (batch []model.Row, ok bool, err error)
	Close(ctx context.Context) error
}

// Connector is the capability contract every dialect realizes. A
// single Connector value owns at most one "primary" native
// connection, used for administrative reads (schema discovery). A
// call to Connect returns a freshly constructed Connector bound to
// its own freshly opened native connection; workers performing
// initial load always acquire one of these rather than touching the
// primary connection, per the one-native-connection-per-concurrent-
// user invariant.
type Connector interface {
	Dialect() Dialect

	// Connect returns an isolated handle bound to a new native
	// connection. The caller owns the returned Connector and must
	// Disconnect it on every exit path; WithConnection does this
	// automatically.
	Connect(ctx context.Context) (Connector, error)
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// Schema discovery.
	GetAllTables(ctx context.Context) ([]string, error)
	GetTableSchema(ctx context.Context, table string) (model.TableSchema, error)
	GetPrimaryKeys(ctx context.Context, table string) ([]string, error)
	TableExists(ctx context.Context, table string) (bool, error)

	// DDL. Both commit internally; there is no surrounding transaction
	// for the caller to manage.
	CreateTable(ctx context.Context, schema model.TableSchema) error
	AlterTableAddColumn(ctx context.Context, table string, col model.ColumnDefinition) error

	// DML. InsertBatch does not commit: the caller owns the
	// transaction boundary (see BeginTransaction/CommitTransaction).
	// UpdateRow and DeleteRow are auto-committed point operations used
	// by the CDC applier, which treats each event as its own
	// micro-transaction.
	InsertBatch(ctx context.Context, table string, rows []model.Row) error
	UpdateRow(ctx context.Context, table string, pk map[string]interface{}, values map[string]interface{}) error
	DeleteRow(ctx context.Context, table string, pk map[string]interface{}) error

	// FetchAllRows streams a table in batches of at most batchSize
	// rows without materializing the full table in memory. Each call
	// must use a distinct server-side cursor (or equivalent) so that
	// multiple tables can be read in parallel, whether over one
	// physical connection or many.
	FetchAllRows(ctx context.Context, table string, batchSize int) (RowBatchReader, error)
	GetRowCount(ctx context.Context, table string) (int64, error)

	ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]model.Row, error)

	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
}

// Factory constructs a Connector bound to a freshly opened primary
// native connection from cfg.
type Factory func(ctx context.Context, cfg ConnectionConfig) (Connector, error)

// WithConnection runs fn against an isolated handle acquired from
// primary.Connect, guaranteeing Disconnect on every exit path and
// rolling back any transaction still open when fn returns an error.
// This realizes spec's scoped-acquisition requirement for C2 and the
// "connect() returns a fresh isolated connector" pattern workers rely
// on during initial load.
func WithConnection(ctx context.Context, primary Connector, fn func(Connector) error) (err error) {
	conn, err := primary.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			// Best effort: RollbackTransaction is a no-op when no
			// transaction is open, and any error it returns is ignored in
			// favor of the original failure.
			_ = conn.RollbackTransaction(ctx)
		}
		_ = conn.Disconnect(ctx)
	}()

	err = fn(conn)
	return err
}
