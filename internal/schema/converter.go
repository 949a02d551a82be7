// Package schema holds the cross-dialect type converter (C5) and the
// schema manager (C6).
package schema

import (
	"strings"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
)

// dialectPair keys the exhaustive type-mapping tables.
type dialectPair struct {
	source, target connector.Dialect
}

// postgresToMySQL is the required Postgres -> MySQL mapping from
// spec §4.3, extended with the remaining base types original_source's
// SchemaConverter.TYPE_MAPPINGS carries that the distilled spec didn't
// spell out individually (VARCHAR/CHAR/TEXT/DATE/TIME pass through
// unchanged, so they're omitted here — the fallback in convertType
// already does the identity thing for an unmapped base).
var postgresToMySQL = map[string]string{
	"INTEGER":          "INT",
	"INT4":             "INT",
	"SERIAL":           "BIGINT",
	"BIGSERIAL":        "BIGINT",
	"BOOLEAN":          "TINYINT(1)",
	"TIMESTAMP":        "DATETIME",
	"TIMESTAMPTZ":      "DATETIME",
	"JSONB":            "JSON",
	"UUID":             "CHAR(36)",
	"BYTEA":            "BLOB",
	"DOUBLE PRECISION": "DOUBLE",
	"REAL":             "FLOAT",
	"NUMERIC":          "DECIMAL",
}

// mySQLToPostgres is the inverse table named in spec §4.3.
var mySQLToPostgres = map[string]string{
	"INT":        "INTEGER",
	"BIGINT":     "BIGINT",
	"SMALLINT":   "SMALLINT",
	"DECIMAL":    "NUMERIC",
	"FLOAT":      "REAL",
	"DOUBLE":     "DOUBLE PRECISION",
	"TINYINT(1)": "BOOLEAN",
	"DATETIME":   "TIMESTAMP",
	"JSON":       "JSONB",
	"BLOB":       "BYTEA",
}

func typeMapFor(pair dialectPair) map[string]string {
	switch pair {
	case dialectPair{connector.Postgres, connector.MySQL}:
		return postgresToMySQL
	case dialectPair{connector.MySQL, connector.Postgres}:
		return mySQLToPostgres
	default:
		return nil
	}
}

// Convert transforms schema from source to target dialect. It is
// pure and stateless: identity when the dialects match, and an
// unchanged-type passthrough (spec's documented fallback) for any
// base type the pair's table doesn't name.
func Convert(s model.TableSchema, source, target connector.Dialect) model.TableSchema {
	if source == target {
		return s
	}
	typeMap := typeMapFor(dialectPair{source, target})

	converted := model.TableSchema{
		Name:        s.Name,
		PrimaryKeys: append([]string(nil), s.PrimaryKeys...),
		Indexes:     append([]model.IndexDefinition(nil), s.Indexes...),
	}
	for _, col := range s.Columns {
		newCol := col
		newCol.DataType = convertType(col.DataType, typeMap)
		if source == connector.Postgres && target == connector.MySQL &&
			col.IsPrimaryKey && col.Default != nil && strings.Contains(strings.ToLower(*col.Default), "nextval(") {
			newCol.Default = nil
		}
		converted.Columns = append(converted.Columns, newCol)
	}
	return converted
}

// convertType applies the five-step algorithm spec §4.3 names:
// uppercase+trim, strip WITH/WITHOUT TIME ZONE qualifiers, split off
// the parenthesized parameter suffix, map the base, re-append the
// suffix verbatim.
func convertType(dataType string, typeMap map[string]string) string {
	normalized := strings.ToUpper(strings.TrimSpace(dataType))
	normalized = strings.ReplaceAll(normalized, " WITHOUT TIME ZONE", "")
	normalized = strings.ReplaceAll(normalized, " WITH TIME ZONE", "")

	// TINYINT(1) -> BOOLEAN is keyed on the full parameterized type,
	// since TINYINT(2) and wider are ordinary integers, not booleans.
	// Check the exact normalized string before the generic
	// strip-parameters-then-map step.
	if typeMap != nil {
		if mapped, ok := typeMap[normalized]; ok {
			return mapped
		}
	}

	base := normalized
	var suffix string
	if idx := strings.IndexByte(normalized, '('); idx >= 0 {
		base = strings.TrimSpace(normalized[:idx])
		suffix = normalized[idx:]
	}

	convertedBase := base
	if typeMap != nil {
		if mapped, ok := typeMap[base]; ok {
			convertedBase = mapped
		}
	}
	return convertedBase + suffix
}
