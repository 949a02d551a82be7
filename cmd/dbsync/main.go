// Command dbsync loads a sync configuration file, wires up the source
// and target connectors, and runs the replication engine until an
// interrupt signal arrives. CLI flag parsing beyond the config path
// and environment-based overrides are out of scope (spec §1 names
// transport/orchestration around the engine as a non-goal); this is
// the minimal runnable entry point the rest of the repository assumes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/heterosync/dbsync/internal/cdc"
	"github.com/heterosync/dbsync/internal/connector"
	_ "github.com/heterosync/dbsync/internal/connector/mysql"
	_ "github.com/heterosync/dbsync/internal/connector/postgres"
	"github.com/heterosync/dbsync/internal/engine"
	"github.com/heterosync/dbsync/internal/load"
	"github.com/heterosync/dbsync/internal/retry"
	"github.com/heterosync/dbsync/internal/synclog"
	"github.com/heterosync/dbsync/internal/syncconfig"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := syncconfig.FromYAMLFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := synclog.New(logLevel(cfg.Logging.Level))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, err := connector.Connect(ctx, connectionConfig(cfg.Source))
	if err != nil {
		return fmt.Errorf("connecting to source: %w", err)
	}
	target, err := connector.Connect(ctx, connectionConfig(cfg.Target))
	if err != nil {
		return fmt.Errorf("connecting to target: %w", err)
	}

	e := engine.New(source, target, engine.Settings{
		InitialLoad: load.Settings{
			Enabled:        cfg.Sync.InitialLoad.Enabled,
			BatchSize:      cfg.Sync.InitialLoad.BatchSize,
			ParallelTables: cfg.Sync.InitialLoad.ParallelTables,
			IncludeTables:  cfg.Sync.InitialLoad.IncludeTables,
			ExcludeTables:  cfg.Sync.InitialLoad.ExcludeTables,
		},
		CDCEnabled:              cfg.Sync.CDC.Enabled,
		ApplyDeletes:            cfg.Sync.CDC.ApplyDeletes,
		ConflictResolution:      cdc.ConflictResolution(cfg.Sync.CDC.ConflictResolution),
		AutoDetectSchemaChanges: cfg.Sync.CDC.AutoDetectSchemaChanges,
		Retry: retry.Settings{
			MaxAttempts: uint64(cfg.Performance.RetryAttempts),
		},
	}, log)

	log.Infof("dbsync starting: %s (%s) -> %s (%s)",
		cfg.Source.Database, cfg.Source.Type, cfg.Target.Database, cfg.Target.Type)

	// The opaque upstream CDC producer (Kafka/Debezium embedded engine)
	// that would call e.Enqueue for every row change is out of scope;
	// its wiring point is engine.Engine.Enqueue.
	return e.Run(ctx)
}

func connectionConfig(db syncconfig.Database) connector.ConnectionConfig {
	return connector.ConnectionConfig{
		Dialect:  connector.Dialect(db.Type),
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Database,
		Username: db.Username,
		Password: db.Password,
		SSLMode:  db.SSLMode,
		Schema:   db.Schema,
	}
}

func logLevel(level string) zapcore.Level {
	switch level {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
