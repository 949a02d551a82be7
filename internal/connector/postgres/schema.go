package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

func sanitizeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// quoteIdent double-quotes a Postgres identifier, doubling any
// embedded quote, following common.QuoteIdentifier's escaping rule.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (c *Conn) qualified(table string) string {
	return quoteIdent(c.schema) + "." + quoteIdent(table)
}

func (c *Conn) GetAllTables(ctx context.Context) ([]string, error) {
	rows, err := c.exec().Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, c.schema)
	if err != nil {
		return nil, connector.WrapOperation(connector.Postgres, "get_all_tables", "", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, connector.WrapOperation(connector.Postgres, "get_all_tables", "", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := c.exec().QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2)`, c.schema, table).Scan(&exists)
	if err != nil {
		return false, connector.WrapOperation(connector.Postgres, "table_exists", table, err)
	}
	return exists, nil
}

func (c *Conn) GetPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := c.exec().Query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.table_constraints tc
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND kcu.table_schema = $1 AND kcu.table_name = $2
		ORDER BY kcu.ordinal_position`, c.schema, table)
	if err != nil {
		return nil, connector.WrapOperation(connector.Postgres, "get_primary_keys", table, err)
	}
	defer rows.Close()

	var pks []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, connector.WrapOperation(connector.Postgres, "get_primary_keys", table, err)
		}
		pks = append(pks, name)
	}
	return pks, rows.Err()
}

// GetTableSchema discovers columns from information_schema.columns,
// resolving character length and numeric precision/scale suffixes
// into the data_type string (spec requirement for C3), then marks
// primary keys via GetPrimaryKeys.
func (c *Conn) GetTableSchema(ctx context.Context, table string) (model.TableSchema, error) {
	rows, err := c.exec().Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default,
			character_maximum_length, numeric_precision, numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, c.schema, table)
	if err != nil {
		return model.TableSchema{}, connector.WrapOperation(connector.Postgres, "get_table_schema", table, err)
	}
	defer rows.Close()

	var columns []model.ColumnDefinition
	for rows.Next() {
		var name, dataType, isNullable string
		var def *string
		var charLen, numPrecision, numScale *int64
		if err := rows.Scan(&name, &dataType, &isNullable, &def, &charLen, &numPrecision, &numScale); err != nil {
			return model.TableSchema{}, connector.WrapOperation(connector.Postgres, "get_table_schema", table, err)
		}
		columns = append(columns, model.ColumnDefinition{
			Name:     name,
			DataType: resolveTypeSuffix(dataType, charLen, numPrecision, numScale),
			Nullable: isNullable == "YES",
			Default:  def,
		})
	}
	if err := rows.Err(); err != nil {
		return model.TableSchema{}, connector.WrapOperation(connector.Postgres, "get_table_schema", table, err)
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

func resolveTypeSuffix(dataType string, charLen, numPrecision, numScale *int64) string {
	upper := strings.ToUpper(dataType)
	switch {
	case charLen != nil:
		return fmt.Sprintf("%s(%d)", upper, *charLen)
	case numPrecision != nil && numScale != nil && *numScale > 0:
		return fmt.Sprintf("%s(%d,%d)", upper, *numPrecision, *numScale)
	case numPrecision != nil:
		return fmt.Sprintf("%s(%d)", upper, *numPrecision)
	default:
		return upper
	}
}

// CreateTable emits a CREATE TABLE statement. Column clauses follow
// the ordinary Postgres shape (no MySQL-style AUTO_INCREMENT
// rendering); serial types are expected to already be in DataType by
// the time the schema converter hands this schema to the manager.
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
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", c.qualified(schema.Name), strings.Join(cols, ", "))
	_, err := c.exec().Exec(ctx, stmt)
	return connector.WrapOperation(connector.Postgres, "create_table", schema.Name, err)
}

func columnClause(col model.ColumnDefinition) string {
	clause := quoteIdent(col.Name) + " " + col.DataType
	if col.IsPrimaryKey || !col.Nullable {
		clause += " NOT NULL"
	}
	if col.Default != nil {
		clause += " DEFAULT " + *col.Default
	}
	return clause
}

func (c *Conn) AlterTableAddColumn(ctx context.Context, table string, col model.ColumnDefinition) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", c.qualified(table), columnClause(col))
	_, err := c.exec().Exec(ctx, stmt)
	return connector.WrapOperation(connector.Postgres, "alter_table_add_column", table, err)
}
