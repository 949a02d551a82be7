package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

func (c *Conn) InsertBatch(ctx context.Context, table string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	columns := rows[0].Columns
	placeholders := make([]string, len(columns))
	quotedCols := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		quotedCols[i] = quoteIdent(col)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))

	for _, row := range rows {
		if _, err := c.exec().ExecContext(ctx, stmt, row.Values...); err != nil {
			return connector.WrapOperation(connector.MySQL, "insert_batch", table, err)
		}
	}
	return nil
}

func (c *Conn) UpdateRow(ctx context.Context, table string, pk map[string]interface{}, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	setCols := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values)+len(pk))
	for col, v := range values {
		setCols = append(setCols, quoteIdent(col)+" = ?")
		args = append(args, v)
	}
	whereCols := make([]string, 0, len(pk))
	for col, v := range pk {
		whereCols = append(whereCols, quoteIdent(col)+" = ?")
		args = append(args, v)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteIdent(table), strings.Join(setCols, ", "), strings.Join(whereCols, " AND "))

	res, err := c.exec().ExecContext(ctx, stmt, args...)
	if err != nil {
		return connector.WrapOperation(connector.MySQL, "update_row", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return connector.WrapOperation(connector.MySQL, "update_row", table, err)
	}
	if affected == 0 {
		return connector.WrapOperation(connector.MySQL, "update_row", table, connector.ErrRowNotFound)
	}
	return nil
}

func (c *Conn) DeleteRow(ctx context.Context, table string, pk map[string]interface{}) error {
	whereCols := make([]string, 0, len(pk))
	args := make([]interface{}, 0, len(pk))
	for col, v := range pk {
		whereCols = append(whereCols, quoteIdent(col)+" = ?")
		args = append(args, v)
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(table), strings.Join(whereCols, " AND "))
	_, err := c.exec().ExecContext(ctx, stmt, args...)
	return connector.WrapOperation(connector.MySQL, "delete_row", table, err)
}

func (c *Conn) GetRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := c.exec().QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&count)
	if err != nil {
		return 0, connector.WrapOperation(connector.MySQL, "get_row_count", table, err)
	}
	return count, nil
}

func (c *Conn) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]model.Row, error) {
	rows, err := c.exec().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, connector.WrapOperation(connector.MySQL, "execute_query", "", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]model.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result []model.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		result = append(result, model.NewRow(columns, values))
	}
	return result, rows.Err()
}

func (c *Conn) BeginTransaction(ctx context.Context) error {
	if c.tx != nil {
		return fmt.Errorf("mysql: transaction already open")
	}
	var tx *sql.Tx
	var err error
	if c.reserved != nil {
		tx, err = c.reserved.BeginTx(ctx, nil)
	} else {
		tx, err = c.db.BeginTx(ctx, nil)
	}
	if err != nil {
		return connector.WrapOperation(connector.MySQL, "begin_transaction", "", err)
	}
	c.tx = tx
	return nil
}

func (c *Conn) CommitTransaction(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("mysql: no open transaction")
	}
	err := c.tx.Commit()
	c.tx = nil
	return connector.WrapOperation(connector.MySQL, "commit_transaction", "", err)
}

func (c *Conn) RollbackTransaction(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return connector.WrapOperation(connector.MySQL, "rollback_transaction", "", err)
}
