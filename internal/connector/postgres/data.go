package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// InsertBatch inserts every row using a single parameterized INSERT
// per row, built from the columns of the first row in the batch. It
// does not commit: the caller (initial load, which wraps each batch
// in BeginTransaction/CommitTransaction) owns the transaction
// boundary.
func (c *Conn) InsertBatch(ctx context.Context, table string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	columns := rows[0].Columns
	placeholders := make([]string, len(columns))
	quotedCols := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quotedCols[i] = quoteIdent(col)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.qualified(table), strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))

	for _, row := range rows {
		if _, err := c.exec().Exec(ctx, stmt, row.Values...); err != nil {
			return connector.WrapOperation(connector.Postgres, "insert_batch", table, err)
		}
	}
	return nil
}

// UpdateRow is an auto-committed point update, used by the CDC
// applier, which treats each event as its own micro-transaction.
func (c *Conn) UpdateRow(ctx context.Context, table string, pk map[string]interface{}, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	setCols := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values)+len(pk))
	i := 1
	for col, v := range values {
		setCols = append(setCols, fmt.Sprintf("%s = $%d", quoteIdent(col), i))
		args = append(args, v)
		i++
	}
	whereCols := make([]string, 0, len(pk))
	for col, v := range pk {
		whereCols = append(whereCols, fmt.Sprintf("%s = $%d", quoteIdent(col), i))
		args = append(args, v)
		i++
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		c.qualified(table), strings.Join(setCols, ", "), strings.Join(whereCols, " AND "))

	tag, err := c.exec().Exec(ctx, stmt, args...)
	if err != nil {
		return connector.WrapOperation(connector.Postgres, "update_row", table, err)
	}
	if tag.RowsAffected() == 0 {
		return connector.WrapOperation(connector.Postgres, "update_row", table, connector.ErrRowNotFound)
	}
	return nil
}

// DeleteRow is an auto-committed point delete.
func (c *Conn) DeleteRow(ctx context.Context, table string, pk map[string]interface{}) error {
	whereCols := make([]string, 0, len(pk))
	args := make([]interface{}, 0, len(pk))
	i := 1
	for col, v := range pk {
		whereCols = append(whereCols, fmt.Sprintf("%s = $%d", quoteIdent(col), i))
		args = append(args, v)
		i++
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", c.qualified(table), strings.Join(whereCols, " AND "))
	_, err := c.exec().Exec(ctx, stmt, args...)
	return connector.WrapOperation(connector.Postgres, "delete_row", table, err)
}

func (c *Conn) GetRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := c.exec().QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", c.qualified(table))).Scan(&count)
	if err != nil {
		return 0, connector.WrapOperation(connector.Postgres, "get_row_count", table, err)
	}
	return count, nil
}

func (c *Conn) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]model.Row, error) {
	rows, err := c.exec().Query(ctx, query, args...)
	if err != nil {
		return nil, connector.WrapOperation(connector.Postgres, "execute_query", "", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var result []model.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, connector.WrapOperation(connector.Postgres, "execute_query", "", err)
		}
		result = append(result, model.NewRow(columns, values))
	}
	return result, rows.Err()
}

func (c *Conn) BeginTransaction(ctx context.Context) error {
	if c.tx != nil {
		return fmt.Errorf("postgres: transaction already open")
	}
	var err error
	if c.acquired != nil {
		c.tx, err = c.acquired.Begin(ctx)
	} else {
		c.tx, err = c.pool.Begin(ctx)
	}
	if err != nil {
		return connector.WrapOperation(connector.Postgres, "begin_transaction", "", err)
	}
	return nil
}

func (c *Conn) CommitTransaction(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("postgres: no open transaction")
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	return connector.WrapOperation(connector.Postgres, "commit_transaction", "", err)
}

func (c *Conn) RollbackTransaction(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback(ctx)
	c.tx = nil
	return connector.WrapOperation(connector.Postgres, "rollback_transaction", "", err)
}
