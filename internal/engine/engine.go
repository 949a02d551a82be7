// Package engine implements the top-level orchestration (C10): given
// already-connected source and target connectors, run the initial load
// if needed, bring up
// the CDC bridge, and hold until shutdown, at which point it drains
// the bridge, disconnects both connectors, and logs final statistics.
package engine

import (
	"context"
	"time"

	"github.com/heterosync/dbsync/internal/bridge"
	"github.com/heterosync/dbsync/internal/cdc"
	"github.com/heterosync/dbsync/internal/connector"
	"github.com/heterosync/dbsync/internal/load"
	"github.com/heterosync/dbsync/internal/model"
	"github.com/heterosync/dbsync/internal/retry"
	"github.com/heterosync/dbsync/internal/schema"
	"github.com/heterosync/dbsync/internal/synclog"
)

// statsInterval is the periodic stats-logging cadence spec §4.8 names.
const statsInterval = 60 * time.Second

// Settings configures an Engine beyond the source/target connection
// parameters, which arrive as already-constructed connectors.
type Settings struct {
	InitialLoad load.Settings
	CDCEnabled  bool
	ApplyDeletes bool
	ConflictResolution cdc.ConflictResolution
	AutoDetectSchemaChanges bool
	Retry retry.Settings
}

// Engine owns the full lifecycle of one source-to-target replication
// run.
type Engine struct {
	source connector.Connector
	target connector.Connector

	schemas  *schema.Manager
	loader   *load.Orchestrator
	applier  *cdc.Applier
	bridge   *bridge.Bridge
	stats    *model.Statistics
	settings Settings
	log      *synclog.Logger

	statsStopper retry.Stopper
}

// New wires the engine's components together. source and target must
// already be connected primary connectors (the shared administrative
// connections); isolated per-worker connections are acquired
// internally through the target's Connect method (via
// connector.WithConnection) as each component needs them.
func New(source, target connector.Connector, settings Settings, log *synclog.Logger) *Engine {
	log = log.Named("engine")
	stats := &model.Statistics{}
	schemas := schema.NewManager(source, target, settings.AutoDetectSchemaChanges, log)
	loader := load.New(source, target, schemas, settings.InitialLoad, log)
	applier := cdc.New(target, schemas, stats, cdc.Settings{
		ApplyDeletes:       settings.ApplyDeletes,
		ConflictResolution: settings.ConflictResolution,
		Retry:              settings.Retry,
	}, log)

	e := &Engine{
		source:   source,
		target:   target,
		schemas:  schemas,
		loader:   loader,
		applier:  applier,
		stats:    stats,
		settings: settings,
		log:      log,
	}
	e.bridge = bridge.New(applier.ProcessEvent, log)
	return e
}

// Enqueue is the ingestion point an opaque upstream CDC producer calls
// with one raw JSON envelope per row change. It is exposed directly so
// main can wire it to whatever transport (Kafka consumer, Debezium
// embedded engine, or a test harness) supplies the envelopes; that
// transport is out of scope for this repository.
func (e *Engine) Enqueue(ctx context.Context, raw []byte) error {
	return e.bridge.Enqueue(ctx, raw)
}

// Run executes the full lifecycle described by spec §4.8, blocking
// until ctx is done (the caller's shutdown signal), then draining and
// reporting final statistics before returning.
func (e *Engine) Run(ctx context.Context) error {
	if e.settings.InitialLoad.Enabled {
		needed, err := e.loader.IsInitialLoadNeeded(ctx)
		if err != nil {
			return err
		}
		if needed {
			e.log.Infof("starting initial load")
			result, err := e.loader.Run(ctx)
			if err != nil {
				return err
			}
			e.log.Infof("initial load complete: %d completed, %d failed",
				len(result.CompletedTables), len(result.FailedTables))
		} else {
			e.log.Infof("initial load not needed, skipping")
		}
	}

	if e.settings.CDCEnabled {
		// The consumer must outlive ctx so that shutdown's bridge.Stop can
		// drain what is already queued; Stop, not ctx, ends it.
		e.bridge.Start(context.WithoutCancel(ctx))
		e.log.Infof("CDC bridge started")
	}

	e.statsStopper = retry.StartPeriodic(ctx, statsInterval, func(retry.Tick) {
		e.logStats()
	})

	<-ctx.Done()
	return e.shutdown(context.Background())
}

func (e *Engine) shutdown(ctx context.Context) error {
	e.log.Infof("shutting down")
	if e.statsStopper != nil {
		e.statsStopper.Stop()
	}
	if e.settings.CDCEnabled {
		e.bridge.Stop()
	}

	var firstErr error
	if err := e.source.Disconnect(ctx); err != nil {
		e.log.Errorf("error disconnecting source: %v", err)
		firstErr = err
	}
	if err := e.target.Disconnect(ctx); err != nil {
		e.log.Errorf("error disconnecting target: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	e.logStats()
	return firstErr
}

func (e *Engine) logStats() {
	snap := e.stats.Snapshot()
	e.log.Infof("stats: inserts=%d updates=%d deletes=%d errors=%d",
		snap.Inserts, snap.Updates, snap.Deletes, snap.Errors)
}
