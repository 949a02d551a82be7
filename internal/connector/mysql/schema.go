package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (c *Conn) GetAllTables(ctx context.Context) ([]string, error) {
	rows, err := c.exec().QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, connector.WrapOperation(connector.MySQL, "get_all_tables", "", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, connector.WrapOperation(connector.MySQL, "get_all_tables", "", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := c.exec().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&count)
	if err != nil {
		return false, connector.WrapOperation(connector.MySQL, "table_exists", table, err)
	}
	return count > 0, nil
}

func (c *Conn) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := c.exec().QueryContext(ctx, `
		SELECT k.column_name
		FROM information_schema.table_constraints t
		JOIN information_schema.key_column_usage k
			USING (constraint_name, table_schema, table_name)
		WHERE t.constraint_type = 'PRIMARY KEY'
			AND t.table_schema = DATABASE() AND t.table_name = ?
		ORDER BY k.ordinal_position`, table)
	if err != nil {
		return nil, connector.WrapOperation(connector.MySQL, "get_primary_keys", table, err)
	}
	defer rows.Close()

	var pks []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, connector.WrapOperation(connector.MySQL, "get_primary_keys", table, err)
		}
		pks = append(pks, name)
	}
	return pks, rows.Err()
}

// GetTableSchema uses information_schema.columns.column_type rather
// than data_type, which preserves length and sign (e.g. "varchar(255)",
// "int unsigned") the way data_type alone does not.
func (c *Conn) GetTableSchema(ctx context.Context, table string) (model.TableSchema, error) {
	rows, err := c.exec().QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return model.TableSchema{}, connector.WrapOperation(connector.MySQL, "get_table_schema", table, err)
	}
	defer rows.Close()

	var columns []model.ColumnDefinition
	for rows.Next() {
		var name, columnType, isNullable string
		var def sql.NullString
		if err := rows.Scan(&name, &columnType, &isNullable, &def); err != nil {
			return model.TableSchema{}, connector.WrapOperation(connector.MySQL, "get_table_schema", table, err)
		}
		col := model.ColumnDefinition{
			Name:     name,
			DataType: strings.ToUpper(columnType),
			Nullable: isNullable == "YES",
		}
		if def.Valid {
			col.Default = &def.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return model.TableSchema{}, connector.WrapOperation(connector.MySQL, "get_table_schema", table, err)
	}
	if len(columns) == 0 {
		return model.TableSchema{}, fmt.Errorf("%w: %s", connector.ErrTableNotFound, table)
	}

	pks, err := c.GetPrimaryKeys(ctx, table)
	if err != nil {
		return model.TableSchema{}, err
	}
	return model.NewTableSchema(table, columns, pks), nil
}

// autoIncrementBase is the set of integer base types spec §4.2 names
// as eligible for AUTO_INCREMENT rendering when they are the primary
// key. Matching is on the prefix before any parenthesized width, so
// "INT(11)" and "INT UNSIGNED" both match "INT".
func autoIncrementBase(dataType string) bool {
	base := strings.ToUpper(dataType)
	if idx := strings.IndexByte(base, '('); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.Fields(base)[0])
	switch base {
	case "INT", "INTEGER", "BIGINT", "SMALLINT":
		return true
	default:
		return false
	}
}

func columnClause(col model.ColumnDefinition) string {
	clause := quoteIdent(col.Name) + " " + col.DataType
	if col.IsPrimaryKey && autoIncrementBase(col.DataType) {
		return clause + " NOT NULL AUTO_INCREMENT"
	}
	if col.IsPrimaryKey || !col.Nullable {
		clause += " NOT NULL"
	}
	if col.Default != nil {
		clause += " DEFAULT " + *col.Default
	}
	return clause
}

// CreateTable emits backtick-quoted DDL with the InnoDB/utf8mb4
// storage clause spec §4.2 requires.
func (c *Conn) CreateTable(ctx context.Context, schema model.TableSchema) error {
	var cols []string
	for _, col := range schema.Columns {
		cols = append(cols, columnClause(col))
	}
	if len(schema.PrimaryKeys) > 0 {
		quoted := make([]string, len(schema.PrimaryKeys))
		for i, pk := range schema.PrimaryKeys {
			quoted[i] = quoteIdent(pk)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",
		quoteIdent(schema.Name), strings.Join(cols, ", "))
	_, err := c.exec().ExecContext(ctx, stmt)
	return connector.WrapOperation(connector.MySQL, "create_table", schema.Name, err)
}

func (c *Conn) AlterTableAddColumn(ctx context.Context, table string, col model.ColumnDefinition) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), columnClause(col))
	_, err := c.exec().ExecContext(ctx, stmt)
	return connector.WrapOperation(connector.MySQL, "alter_table_add_column", table, err)
}
