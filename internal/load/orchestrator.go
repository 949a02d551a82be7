// Package load implements the initial-load orchestrator (C7): the
// one-time parallel bulk copy of existing source rows into the target
// that precedes CDC streaming.
package load

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/schema"
	"github.com/heterosync/dbsync/internal/synclog"
)

// progressInterval is how often loadTable logs its row count, per
// spec §4.5.
const progressInterval = 10000

// Settings configures an Orchestrator, mirroring sync.initial_load in
// the YAML configuration.
type Settings struct {
	Enabled        bool
	BatchSize      int
	ParallelTables int
	IncludeTables  []string
	ExcludeTables  []string
}

// Result is the outcome of Run: every table either finished or failed,
// with no overlap between the two sets.
type Result struct {
	CompletedTables []string
	FailedTables    []string
}

// Orchestrator drives the bulk copy described by spec §4.5.
type Orchestrator struct {
	source   connector.Connector
	target   connector.Connector
	schemas  *schema.Manager
	settings Settings
	log      *synclog.Logger
}

func New(source, target connector.Connector, schemas *schema.Manager, settings Settings, log *synclog.Logger) *Orchestrator {
	return &Orchestrator{
		source:   source,
		target:   target,
		schemas:  schemas,
		settings: settings,
		log:      log.Named("load"),
	}
}

// IsInitialLoadNeeded reports whether any source table is missing from
// the target, or any co-named target table is empty while the source
// has at least one row. This is the exact heuristic
// original_source/handlers/initial_load.py uses to skip a redundant
// load on restart (SUPPLEMENTED FEATURES #4).
func (o *Orchestrator) IsInitialLoadNeeded(ctx context.Context) (bool, error) {
	tables, err := o.source.GetAllTables(ctx)
	if err != nil {
		return false, err
	}
	for _, table := range tables {
		exists, err := o.target.TableExists(ctx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return true, nil
		}

		sourceCount, err := o.source.GetRowCount(ctx, table)
		if err != nil {
			return false, err
		}
		if sourceCount == 0 {
			continue
		}
		targetCount, err := o.target.GetRowCount(ctx, table)
		if err != nil {
			return false, err
		}
		if targetCount == 0 {
			return true, nil
		}
	}
	return false, nil
}

// Run executes the full protocol: enumerate, filter, sync schemas
// sequentially, then load the surviving tables with a worker pool of
// exactly ParallelTables workers (sequential when ParallelTables <= 1).
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	tables, err := o.source.GetAllTables(ctx)
	if err != nil {
		return Result{}, err
	}
	tables = applyFilters(tables, o.settings.IncludeTables, o.settings.ExcludeTables)

	var mu sync.Mutex
	failed := make(map[string]struct{})

	toLoad := make([]string, 0, len(tables))
	for _, table := range tables {
		if err := o.schemas.SyncTableSchema(ctx, table); err != nil {
			o.log.Errorf("schema sync failed for %s, skipping load: %v", table, err)
			failed[table] = struct{}{}
			continue
		}
		toLoad = append(toLoad, table)
	}

	workers := o.settings.ParallelTables
	if workers <= 1 {
		for _, table := range toLoad {
			if err := o.loadTable(ctx, table); err != nil {
				o.log.Errorf("load failed for %s: %v", table, err)
				mu.Lock()
				failed[table] = struct{}{}
				mu.Unlock()
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, table := range toLoad {
			table := table
			g.Go(func() error {
				if err := o.loadTable(gctx, table); err != nil {
					o.log.Errorf("load failed for %s: %v", table, err)
					mu.Lock()
					failed[table] = struct{}{}
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	result := Result{}
	for _, table := range tables {
		if _, isFailed := failed[table]; isFailed {
			result.FailedTables = append(result.FailedTables, table)
		} else {
			result.CompletedTables = append(result.CompletedTables, table)
		}
	}
	return result, nil
}

// loadTable copies one table end to end over its own isolated target
// connection, batch by batch, each batch its own transaction. An error
// mid-table rolls back that batch and aborts only this table.
func (o *Orchestrator) loadTable(ctx context.Context, table string) error {
	count, err := o.source.GetRowCount(ctx, table)
	if err != nil {
		return err
	}
	if count == 0 {
		o.log.Infof("table %s is empty, nothing to load", table)
		return nil
	}

	return connector.WithConnection(ctx, o.target, func(targetConn connector.Connector) error {
		reader, err := o.source.FetchAllRows(ctx, table, o.batchSize())
		if err != nil {
			return err
		}
		defer reader.Close(ctx)

		var loaded int64
		for {
			batch, ok, err := reader.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if len(batch) == 0 {
				continue
			}

			if err := targetConn.BeginTransaction(ctx); err != nil {
				return err
			}
			if err := targetConn.InsertBatch(ctx, table, batch); err != nil {
				_ = targetConn.RollbackTransaction(ctx)
				return err
			}
			if err := targetConn.CommitTransaction(ctx); err != nil {
				return err
			}

			loaded += int64(len(batch))
			if loaded%progressInterval < int64(len(batch)) {
				o.log.Infof("table %s: %d rows loaded", table, loaded)
			}
		}
		o.log.Infof("table %s: load complete, %d rows", table, loaded)
		return nil
	})
}

func (o *Orchestrator) batchSize() int {
	if o.settings.BatchSize <= 0 {
		return 1000
	}
	return o.settings.BatchSize
}

// applyFilters keeps only IncludeTables (when non-empty) then drops
// ExcludeTables, per spec §4.5 step 2.
func applyFilters(tables, include, exclude []string) []string {
	if len(include) > 0 {
		keep := make(map[string]struct{}, len(include))
		for _, t := range include {
			keep[t] = struct{}{}
		}
		filtered := tables[:0:0]
		for _, t := range tables {
			if _, ok := keep[t]; ok {
				filtered = append(filtered, t)
			}
		}
		tables = filtered
	}
	if len(exclude) > 0 {
		drop := make(map[string]struct{}, len(exclude))
		for _, t := range exclude {
			drop[t] = struct{}{}
		}
		filtered := tables[:0:0]
		for _, t := range tables {
			if _, ok := drop[t]; !ok {
				filtered = append(filtered, t)
			}
		}
		tables = filtered
	}
	return tables
}
