// Package syncconfig loads and validates the single YAML document that
// configures a replication run: source/target database connections,
// the Kafka/Debezium transport the opaque upstream CDC producer uses,
// and the sync/monitoring/logging/performance/state blocks. Loading
// follows Icinga-icinga-go-library's config.FromYAMLFile pattern:
// goccy/go-yaml for parsing, creasty/defaults for struct-tag defaults,
// caarlos0/env for an environment-variable overlay, and a Validator
// interface each section implements.
package syncconfig

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Validator is implemented by Config and every nested section that
// needs to check constraints beyond what YAML/struct tags express.
type Validator interface {
	Validate() error
}

// Database mirrors the per-connection fields spec §6 names for both
// source and target.
type Database struct {
	Type        string `yaml:"type" env:"TYPE"`
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT"`
	Database    string `yaml:"database" env:"DATABASE"`
	Username    string `yaml:"username" env:"USERNAME"`
	Password    string `yaml:"password" env:"PASSWORD,unset"`
	SSLMode     string `yaml:"ssl_mode" default:"prefer" env:"SSL_MODE"`
	Schema      string `yaml:"schema" default:"public" env:"SCHEMA"`
	ServerID    int    `yaml:"server_id,omitempty" env:"SERVER_ID"`
	ReplicaSet  string `yaml:"replica_set,omitempty" env:"REPLICA_SET"`
}

func (d *Database) Validate() error {
	switch d.Type {
	case "postgresql", "mysql":
	default:
		return errors.Errorf("database: unsupported type %q, must be postgresql or mysql", d.Type)
	}
	if d.Host == "" {
		return errors.New("database: host missing")
	}
	if d.Database == "" {
		return errors.New("database: database name missing")
	}
	if d.Username == "" {
		return errors.New("database: username missing")
	}
	return nil
}

// Kafka configures the transport the opaque upstream CDC producer
// uses to ship Debezium envelopes; this repository only carries the
// settings through to that producer, it does not implement a consumer.
type Kafka struct {
	BootstrapServers string `yaml:"bootstrap_servers" env:"BOOTSTRAP_SERVERS"`
	GroupID          string `yaml:"group_id" env:"GROUP_ID"`
	AutoOffsetReset  string `yaml:"auto_offset_reset" default:"earliest" env:"AUTO_OFFSET_RESET"`
	EnableAutoCommit bool   `yaml:"enable_auto_commit" default:"false" env:"ENABLE_AUTO_COMMIT"`
	MaxPollRecords   int    `yaml:"max_poll_records" default:"500" env:"MAX_POLL_RECORDS"`
}

func (k *Kafka) Validate() error {
	if k.BootstrapServers == "" {
		return errors.New("kafka: bootstrap_servers missing")
	}
	if k.GroupID == "" {
		return errors.New("kafka: group_id missing")
	}
	return nil
}

// Debezium configures the embedded-engine-style connector the opaque
// upstream producer wraps. ToConnectorProperties renders it, merged
// with the authoritative source connection fields, into the
// dot.notation property map Debezium/Kafka Connect expects.
type Debezium struct {
	ConnectorClass                   string `yaml:"connector_class" env:"CONNECTOR_CLASS"`
	ServerName                       string `yaml:"server_name" env:"SERVER_NAME"`
	TopicPrefix                      string `yaml:"topic_prefix" default:"dbsync" env:"TOPIC_PREFIX"`
	SlotName                         string `yaml:"slot_name" default:"debezium_slot" env:"SLOT_NAME"`
	PluginName                       string `yaml:"plugin_name" default:"pgoutput" env:"PLUGIN_NAME"`
	PublicationName                  string `yaml:"publication_name" default:"dbz_publication" env:"PUBLICATION_NAME"`
	SnapshotMode                     string `yaml:"snapshot_mode" default:"initial" env:"SNAPSHOT_MODE"`
	OffsetStorage                    string `yaml:"offset_storage" default:"org.apache.kafka.connect.storage.FileOffsetBackingStore" env:"OFFSET_STORAGE"`
	OffsetStorageFileFilename        string `yaml:"offset_storage_file_filename" default:"offsets.dat" env:"OFFSET_STORAGE_FILE_FILENAME"`
	OffsetFlushIntervalMs            int    `yaml:"offset_flush_interval_ms" default:"10000" env:"OFFSET_FLUSH_INTERVAL_MS"`
	SchemaHistoryInternal            string `yaml:"schema_history_internal" default:"io.debezium.storage.file.history.FileSchemaHistory" env:"SCHEMA_HISTORY_INTERNAL"`
	SchemaHistoryInternalFileFilename string `yaml:"schema_history_internal_file_filename" default:"schema-history.dat" env:"SCHEMA_HISTORY_INTERNAL_FILE_FILENAME"`
	DecimalHandlingMode               string `yaml:"decimal_handling_mode" default:"double" env:"DECIMAL_HANDLING_MODE"`
	TimePrecisionMode                 string `yaml:"time_precision_mode" default:"adaptive" env:"TIME_PRECISION_MODE"`
	IncludeSchemaChanges               bool   `yaml:"include_schema_changes" default:"true" env:"INCLUDE_SCHEMA_CHANGES"`
}

func (d *Debezium) Validate() error {
	if d.ConnectorClass == "" {
		return errors.New("debezium: connector_class missing")
	}
	if d.ServerName == "" {
		return errors.New("debezium: server_name missing")
	}
	return nil
}

// ToConnectorProperties builds the dot.notation property map Debezium
// expects, following original_source/core/engine.py's
// _build_debezium_config: every Debezium field name is rewritten from
// snake_case to dot.notation, then the source connection fields are
// forced in verbatim so they're always correct regardless of what the
// debezium block itself says. The Postgres-only slot/plugin/publication
// properties are emitted only when the source type is postgresql.
func (d *Debezium) ToConnectorProperties(source Database) map[string]string {
	props := map[string]string{
		"connector.class":                        d.ConnectorClass,
		"topic.prefix":                            d.TopicPrefix,
		"snapshot.mode":                           d.SnapshotMode,
		"offset.storage":                          d.OffsetStorage,
		"offset.storage.file.filename":            d.OffsetStorageFileFilename,
		"schema.history.internal":                 d.SchemaHistoryInternal,
		"schema.history.internal.file.filename":   d.SchemaHistoryInternalFileFilename,
		"decimal.handling.mode":                   d.DecimalHandlingMode,
		"time.precision.mode":                     d.TimePrecisionMode,
		"include.schema.changes":                  fmt.Sprintf("%t", d.IncludeSchemaChanges),
		"offset.flush.interval.ms":                fmt.Sprintf("%d", d.OffsetFlushIntervalMs),
		"name":                                    "dbsync-embedded-engine",
		"database.server.name":                    d.ServerName,
		"topic.naming.strategy":                   "io.debezium.schema.DefaultTopicNamingStrategy",
	}

	// Forced overrides from the authoritative source block, per spec §6.
	props["database.hostname"] = source.Host
	props["database.port"] = fmt.Sprintf("%d", source.Port)
	props["database.user"] = source.Username
	props["database.password"] = source.Password
	props["database.dbname"] = source.Database

	if source.Type == "postgresql" {
		props["plugin.name"] = d.PluginName
		props["slot.name"] = d.SlotName
		props["publication.name"] = d.PublicationName
	}

	return props
}

// InitialLoad is sync.initial_load.
type InitialLoad struct {
	Enabled        bool     `yaml:"enabled" default:"true" env:"ENABLED"`
	BatchSize      int      `yaml:"batch_size" default:"1000" env:"BATCH_SIZE"`
	ParallelTables int      `yaml:"parallel_tables" default:"4" env:"PARALLEL_TABLES"`
	IncludeTables  []string `yaml:"include_tables" env:"INCLUDE_TABLES"`
	ExcludeTables  []string `yaml:"exclude_tables" env:"EXCLUDE_TABLES"`
}

func (i *InitialLoad) Validate() error {
	if i.Enabled && i.BatchSize <= 0 {
		return errors.New("initial_load: batch_size must be positive")
	}
	return nil
}

// CDC is sync.cdc.
type CDC struct {
	Enabled                 bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	AutoCreateTables        bool   `yaml:"auto_create_tables" default:"true" env:"AUTO_CREATE_TABLES"`
	AutoDetectSchemaChanges bool   `yaml:"auto_detect_schema_changes" default:"true" env:"AUTO_DETECT_SCHEMA_CHANGES"`
	ApplyDeletes            bool   `yaml:"apply_deletes" default:"true" env:"APPLY_DELETES"`
	ConflictResolution      string `yaml:"conflict_resolution" default:"source_wins" env:"CONFLICT_RESOLUTION"`
}

func (c *CDC) Validate() error {
	switch c.ConflictResolution {
	case "source_wins", "target_wins":
	default:
		return errors.Errorf("cdc: unsupported conflict_resolution %q", c.ConflictResolution)
	}
	return nil
}

// Sync is the sync top-level block.
type Sync struct {
	InitialLoad InitialLoad `yaml:"initial_load"`
	CDC         CDC         `yaml:"cdc"`
}

func (s *Sync) Validate() error {
	ilErr := s.InitialLoad.Validate()
	cdcErr := s.CDC.Validate()
	switch {
	case ilErr != nil && cdcErr != nil:
		return errors.Errorf("%v; %v", ilErr, cdcErr)
	case ilErr != nil:
		return ilErr
	default:
		return cdcErr
	}
}

// Monitoring is the monitoring block.
type Monitoring struct {
	EnableMetrics   bool `yaml:"enable_metrics" default:"true" env:"ENABLE_METRICS"`
	MetricsPort     int  `yaml:"metrics_port" default:"9090" env:"METRICS_PORT"`
	HealthCheckPort int  `yaml:"health_check_port" default:"8080" env:"HEALTH_CHECK_PORT"`
}

func (*Monitoring) Validate() error { return nil }

// Logging is the logging block.
type Logging struct {
	Level      string `yaml:"level" default:"INFO" env:"LEVEL"`
	Format     string `yaml:"format" default:"json" env:"FORMAT"`
	File       string `yaml:"file" default:"/app/logs/db-sync.log" env:"FILE"`
	MaxBytes   int    `yaml:"max_bytes" default:"10485760" env:"MAX_BYTES"`
	BackupCount int   `yaml:"backup_count" default:"5" env:"BACKUP_COUNT"`
}

func (l *Logging) Validate() error {
	switch l.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return errors.Errorf("logging: unsupported level %q", l.Level)
	}
	return nil
}

// Performance is the performance block.
type Performance struct {
	MaxWorkers          int `yaml:"max_workers" default:"10" env:"MAX_WORKERS"`
	QueueSize           int `yaml:"queue_size" default:"10000" env:"QUEUE_SIZE"`
	BatchTimeoutSeconds int `yaml:"batch_timeout_seconds" default:"5" env:"BATCH_TIMEOUT_SECONDS"`
	ConnectionPoolSize  int `yaml:"connection_pool_size" default:"20" env:"CONNECTION_POOL_SIZE"`
	RetryAttempts       int `yaml:"retry_attempts" default:"3" env:"RETRY_ATTEMPTS"`
	RetryDelaySeconds   int `yaml:"retry_delay_seconds" default:"5" env:"RETRY_DELAY_SECONDS"`
}

func (*Performance) Validate() error { return nil }

// State is the state block: where checkpoint/offset bookkeeping lives
// on disk, for whatever the opaque upstream producer uses to persist
// its own position.
type State struct {
	StoragePath                string `yaml:"storage_path" default:"/app/data/state" env:"STORAGE_PATH"`
	CheckpointIntervalSeconds  int    `yaml:"checkpoint_interval_seconds" default:"60" env:"CHECKPOINT_INTERVAL_SECONDS"`
	OffsetStoragePath          string `yaml:"offset_storage_path" default:"/app/data/offsets" env:"OFFSET_STORAGE_PATH"`
}

func (*State) Validate() error { return nil }

// Config is the root of the single YAML document spec §6 describes.
type Config struct {
	Source      Database    `yaml:"source"`
	Target      Database    `yaml:"target"`
	Kafka       Kafka       `yaml:"kafka"`
	Debezium    Debezium    `yaml:"debezium"`
	Sync        Sync        `yaml:"sync"`
	Monitoring  Monitoring  `yaml:"monitoring"`
	Logging     Logging     `yaml:"logging"`
	Performance Performance `yaml:"performance"`
	State       State       `yaml:"state"`
}

// Validate aggregates every section's errors rather than failing on
// the first one, so a misconfigured file can be fixed in one pass.
func (c *Config) Validate() error {
	var errs []error
	sections := []Validator{
		&c.Source, &c.Target, &c.Kafka, &c.Debezium, &c.Sync,
		&c.Monitoring, &c.Logging, &c.Performance, &c.State,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return errors.New(msg)
}

// FromYAMLFile parses path, applies defaults, overlays environment
// variables, and validates the result, following Icinga's
// config.FromYAMLFile pattern.
func FromYAMLFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't open config file "+path)
	}
	defer f.Close()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "can't set config defaults")
	}

	d := yaml.NewDecoder(f, yaml.DisallowUnknownField())
	if err := d.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "can't parse config file "+path)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "can't parse environment overlay")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
