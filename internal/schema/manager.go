package schema

import (
	"context"
	"sync"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/model"
	"github.com/heterosync/dbsync/internal/synclog"
)

// Manager is the sole path through which the initial-load orchestrator
// and the CDC applier discover table structure. It caches source
// schemas, lazily syncs the target the first time a table is seen,
// and propagates additive drift only. Column drops are reported as
// warnings and never applied; column type changes are neither applied
// nor detected.
type Manager struct {
	source connector.Connector
	target connector.Connector

	autoDetectChanges bool

	mu    sync.RWMutex
	cache map[string]model.TableSchema

	log *synclog.Logger
}

func NewManager(source, target connector.Connector, autoDetectChanges bool, log *synclog.Logger) *Manager {
	return &Manager{
		source:            source,
		target:            target,
		autoDetectChanges: autoDetectChanges,
		cache:             make(map[string]model.TableSchema),
		log:               log.Named("schema"),
	}
}

// GetOrSyncSchema returns the cached schema for table if present;
// otherwise it fetches from source, caches the result, and triggers
// SyncTableSchema if the target doesn't have the table yet.
func (m *Manager) GetOrSyncSchema(ctx context.Context, table string) (model.TableSchema, error) {
	m.mu.RLock()
	cached, ok := m.cache[table]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}

	sourceSchema, err := m.source.GetTableSchema(ctx, table)
	if err != nil {
		return model.TableSchema{}, err
	}

	m.mu.Lock()
	m.cache[table] = sourceSchema
	m.mu.Unlock()

	exists, err := m.target.TableExists(ctx, table)
	if err != nil {
		return model.TableSchema{}, err
	}
	if !exists {
		if err := m.SyncTableSchema(ctx, table); err != nil {
			return model.TableSchema{}, err
		}
	}
	return sourceSchema, nil
}

// SyncTableSchema fetches the source schema, converts it to the
// target dialect, and either creates the target table or, when
// auto-detection is on, applies additive diffs.
func (m *Manager) SyncTableSchema(ctx context.Context, table string) error {
	m.log.Infof("syncing schema for table: %s", table)

	sourceSchema, err := m.source.GetTableSchema(ctx, table)
	if err != nil {
		return err
	}
	targetSchema := Convert(sourceSchema, m.source.Dialect(), m.target.Dialect())

	exists, err := m.target.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.target.CreateTable(ctx, targetSchema); err != nil {
			return err
		}
		m.log.Infof("created table %s in target database", table)
	} else if m.autoDetectChanges {
		if err := m.syncSchemaChanges(ctx, table, targetSchema); err != nil {
			m.log.Errorf("error syncing schema changes for %s: %v", table, err)
		}
	}

	m.mu.Lock()
	m.cache[table] = sourceSchema
	m.mu.Unlock()
	return nil
}

// syncSchemaChanges adds any column present in newSchema but absent
// from the target's current schema. Column deletions and type changes
// are destructive and are never propagated: a target column that the
// source no longer has is logged as a warning, and type changes are
// not compared. See ValidateSchema for a column-name comparison.
func (m *Manager) syncSchemaChanges(ctx context.Context, table string, newSchema model.TableSchema) error {
	currentSchema, err := m.target.GetTableSchema(ctx, table)
	if err != nil {
		return err
	}
	current := make(map[string]struct{}, len(currentSchema.Columns))
	for _, c := range currentSchema.Columns {
		current[c.Name] = struct{}{}
	}

	for _, col := range newSchema.Columns {
		if _, ok := current[col.Name]; ok {
			continue
		}
		m.log.Infof("adding new column %s to table %s", col.Name, table)
		if err := m.target.AlterTableAddColumn(ctx, table, col); err != nil {
			return err
		}
	}

	newCols := make(map[string]struct{}, len(newSchema.Columns))
	for _, col := range newSchema.Columns {
		newCols[col.Name] = struct{}{}
	}
	for _, c := range currentSchema.Columns {
		if _, ok := newCols[c.Name]; !ok {
			m.log.Warnf("column %s of table %s no longer exists in source; not dropping it in target", c.Name, table)
		}
	}
	return nil
}

// ValidateSchema reports whether the set of column names matches
// between source and target.
func (m *Manager) ValidateSchema(ctx context.Context, table string) (bool, error) {
	sourceSchema, err := m.source.GetTableSchema(ctx, table)
	if err != nil {
		return false, err
	}
	targetSchema, err := m.target.GetTableSchema(ctx, table)
	if err != nil {
		return false, err
	}

	sourceCols := make(map[string]struct{}, len(sourceSchema.Columns))
	for _, c := range sourceSchema.Columns {
		sourceCols[c.Name] = struct{}{}
	}
	targetCols := make(map[string]struct{}, len(targetSchema.Columns))
	for _, c := range targetSchema.Columns {
		targetCols[c.Name] = struct{}{}
	}

	if len(sourceCols) != len(targetCols) {
		m.log.Warnf("schema mismatch for %s", table)
		return false, nil
	}
	for name := range sourceCols {
		if _, ok := targetCols[name]; !ok {
			m.log.Warnf("schema mismatch for %s: missing in target: %s", table, name)
			return false, nil
		}
	}
	return true, nil
}

// ClearCache drops all cached entries.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]model.TableSchema)
}

// CacheLen reports the number of cached table schemas.
func (m *Manager) CacheLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
