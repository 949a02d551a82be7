package mysql

import (
	"context"
	"database/sql"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// rowReader streams a *sql.Rows result set batchSize rows at a time.
// Unlike Postgres, MySQL has no named server-side cursor; the driver
// itself streams results row-by-row over its own connection checked
// out from the pool for the lifetime of the *sql.Rows, which gives
// each concurrent FetchAllRows call an implicitly isolated read
// without materializing the table.
type rowReader struct {
	rows      *sql.Rows
	columns   []string
	batchSize int
	done      bool
}

func (c *Conn) FetchAllRows(ctx context.Context, table string, batchSize int) (connector.RowBatchReader, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	rows, err := c.exec().QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, connector.WrapOperation(connector.MySQL, "fetch_all_rows", table, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, connector.WrapOperation(connector.MySQL, "fetch_all_rows", table, err)
	}
	return &rowReader{rows: rows, columns: columns, batchSize: batchSize}, nil
}

func (r *rowReader) Next(ctx context.Context) ([]model.Row, bool, error) {
	if r.done {
		return nil, false, nil
	}
	var batch []model.Row
	for len(batch) < r.batchSize {
		if !r.rows.Next() {
			r.done = true
			break
		}
		values := make([]interface{}, len(r.columns))
		ptrs := make([]interface{}, len(r.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := r.rows.Scan(ptrs...); err != nil {
			return nil, false, connector.WrapOperation(connector.MySQL, "fetch_all_rows", "", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		batch = append(batch, model.NewRow(r.columns, values))
	}
	if err := r.rows.Err(); err != nil {
		return nil, false, connector.WrapOperation(connector.MySQL, "fetch_all_rows", "", err)
	}
	return batch, len(batch) > 0, nil
}

func (r *rowReader) Close(ctx context.Context) error {
	return r.rows.Close()
}
