package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
	"github.com/heterosync/dbsync/internal/synclog"
)

func sampleSchema() model.TableSchema {
	return model.NewTableSchema("t", []model.ColumnDefinition{
		{Name: "id", DataType: "INTEGER"},
	}, []string{"id"})
}

func TestManager_GetOrSyncSchema_CacheHit(t *testing.T) {
	// Invariant 7: a second GetOrSyncSchema call for the same table must
	// not invoke the source connector's GetTableSchema again.
	source := newFakeConnector(connector.Postgres, sampleSchema(), true)
	target := newFakeConnector(connector.MySQL, sampleSchema(), true)
	log := synclog.New(zapcore.ErrorLevel)
	m := NewManager(source, target, false, log)

	_, err := m.GetOrSyncSchema(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, 1, source.getSchemaCalls)

	_, err = m.GetOrSyncSchema(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, 1, source.getSchemaCalls)
}

func TestManager_GetOrSyncSchema_CreatesMissingTargetTable(t *testing.T) {
	source := newFakeConnector(connector.Postgres, sampleSchema(), true)
	target := newFakeConnector(connector.MySQL, model.TableSchema{}, false)
	log := synclog.New(zapcore.ErrorLevel)
	m := NewManager(source, target, false, log)

	_, err := m.GetOrSyncSchema(context.Background(), "t")
	require.NoError(t, err)
	assert.True(t, target.exists)
}

func TestManager_SyncTableSchema_AddsNewColumnsAdditively(t *testing.T) {
	sourceSchema := model.NewTableSchema("t", []model.ColumnDefinition{
		{Name: "id", DataType: "INTEGER"},
		{Name: "email", DataType: "VARCHAR(255)"},
	}, []string{"id"})
	targetCurrent := model.NewTableSchema("t", []model.ColumnDefinition{
		{Name: "id", DataType: "INT"},
	}, []string{"id"})

	source := newFakeConnector(connector.Postgres, sourceSchema, true)
	target := newFakeConnector(connector.MySQL, targetCurrent, true)
	log := synclog.New(zapcore.ErrorLevel)
	m := NewManager(source, target, true, log)

	require.NoError(t, m.SyncTableSchema(context.Background(), "t"))
	assert.Equal(t, []string{"email"}, target.alteredColumns)
}

func TestManager_ValidateSchema_DetectsMismatch(t *testing.T) {
	sourceSchema := model.NewTableSchema("t", []model.ColumnDefinition{
		{Name: "id", DataType: "INTEGER"},
		{Name: "email", DataType: "VARCHAR(255)"},
	}, []string{"id"})
	targetSchema := model.NewTableSchema("t", []model.ColumnDefinition{
		{Name: "id", DataType: "INT"},
	}, []string{"id"})

	source := newFakeConnector(connector.Postgres, sourceSchema, true)
	target := newFakeConnector(connector.MySQL, targetSchema, true)
	log := synclog.New(zapcore.ErrorLevel)
	m := NewManager(source, target, false, log)

	ok, err := m.ValidateSchema(context.Background(), "t")
	require.NoError(t, err)
	assert.False(t, ok)
}
