package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// cursorReader streams a table through a named server-side cursor
// declared inside its own transaction. The transaction is owned by
// the reader, not the Conn it was opened from: Conn.tx is the shared
// mutable field BeginTransaction/CommitTransaction use for the
// caller's own batch transactions, and storing a cursor's transaction
// there would race the moment two FetchAllRows calls run concurrently
// against the same Conn, as every parallel-load worker's source reads
// do. Each reader keeps its own tx so concurrent readers on the same
// Conn (one physical connection or many) never touch each other's
// state. The cursor name is unique per call (see nextCursorName) so
// the server side never collides either.
type cursorReader struct {
	tx         pgx.Tx
	cursorName string
	batchSize  int
	columns    []string
	exhausted  bool
}

// beginTx opens a transaction without touching c.tx, the field
// reserved for the caller's own explicit Begin/Commit calls.
func (c *Conn) beginTx(ctx context.Context) (pgx.Tx, error) {
	if c.acquired != nil {
		return c.acquired.Begin(ctx)
	}
	return c.pool.Begin(ctx)
}

// FetchAllRows opens a dedicated transaction and declares a named
// cursor over the full table, then returns a reader that FETCHes
// batchSize rows at a time. The transaction stays open for the
// lifetime of the reader; Close commits it.
func (c *Conn) FetchAllRows(ctx context.Context, table string, batchSize int) (connector.RowBatchReader, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	tx, err := c.beginTx(ctx)
	if err != nil {
		return nil, connector.WrapOperation(connector.Postgres, "fetch_all_rows", table, err)
	}

	name := c.nextCursorName(table)
	declare := fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR SELECT * FROM %s", name, c.qualified(table))
	if _, err := tx.Exec(ctx, declare); err != nil {
		_ = tx.Rollback(ctx)
		return nil, connector.WrapOperation(connector.Postgres, "fetch_all_rows", table, err)
	}

	return &cursorReader{tx: tx, cursorName: name, batchSize: batchSize}, nil
}

func (r *cursorReader) Next(ctx context.Context) ([]model.Row, bool, error) {
	if r.exhausted {
		return nil, false, nil
	}
	rows, err := r.tx.Query(ctx, fmt.Sprintf("FETCH %d FROM %s", r.batchSize, r.cursorName))
	if err != nil {
		return nil, false, connector.WrapOperation(connector.Postgres, "fetch_all_rows", "", err)
	}
	defer rows.Close()

	if r.columns == nil {
		fields := rows.FieldDescriptions()
		r.columns = make([]string, len(fields))
		for i, f := range fields {
			r.columns[i] = string(f.Name)
		}
	}

	var batch []model.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, false, connector.WrapOperation(connector.Postgres, "fetch_all_rows", "", err)
		}
		batch = append(batch, model.NewRow(r.columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, false, connector.WrapOperation(connector.Postgres, "fetch_all_rows", "", err)
	}

	if len(batch) < r.batchSize {
		r.exhausted = true
	}
	return batch, len(batch) > 0, nil
}

func (r *cursorReader) Close(ctx context.Context) error {
	if r.tx == nil {
		return nil
	}
	_, _ = r.tx.Exec(ctx, fmt.Sprintf("CLOSE %s", r.cursorName))
	err := r.tx.Commit(ctx)
	r.tx = nil
	return connector.WrapOperation(connector.Postgres, "fetch_all_rows", r.cursorName, err)
}
