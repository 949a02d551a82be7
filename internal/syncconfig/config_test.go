package syncconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDatabase(dbType string) Database {
	return Database{Type: dbType, Host: "localhost", Database: "app", Username: "app"}
}

func TestConfig_Validate_AggregatesAllSectionErrors(t *testing.T) {
	cfg := &Config{
		Source: Database{}, // missing type/host/database/username
		Target: validDatabase("mysql"),
		Kafka:  Kafka{BootstrapServers: "broker:9092", GroupID: "g"},
		Debezium: Debezium{
			ConnectorClass: "io.debezium.connector.postgresql.PostgresConnector",
			ServerName:     "app",
		},
		Sync: Sync{
			InitialLoad: InitialLoad{Enabled: true, BatchSize: 0}, // invalid
			CDC:         CDC{ConflictResolution: "bogus"},         // invalid
		},
		Logging: Logging{Level: "TRACE"}, // invalid
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "database:"))
	assert.True(t, strings.Contains(msg, "batch_size"))
	assert.True(t, strings.Contains(msg, "conflict_resolution"))
	assert.True(t, strings.Contains(msg, "level"))
}

func TestConfig_Validate_PassesWithValidSections(t *testing.T) {
	cfg := &Config{
		Source: validDatabase("postgresql"),
		Target: validDatabase("mysql"),
		Kafka:  Kafka{BootstrapServers: "broker:9092", GroupID: "g"},
		Debezium: Debezium{
			ConnectorClass: "io.debezium.connector.postgresql.PostgresConnector",
			ServerName:     "app",
		},
		Sync: Sync{
			InitialLoad: InitialLoad{Enabled: true, BatchSize: 1000},
			CDC:         CDC{ConflictResolution: "source_wins"},
		},
		Logging: Logging{Level: "INFO"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestDatabase_Validate_RejectsUnsupportedType(t *testing.T) {
	db := validDatabase("oracle")
	assert.Error(t, db.Validate())
}

func TestDebezium_ToConnectorProperties_ForcesSourceFieldsOverBlockValues(t *testing.T) {
	d := &Debezium{
		ConnectorClass:   "io.debezium.connector.postgresql.PostgresConnector",
		ServerName:       "app",
		TopicPrefix:      "dbsync",
		SlotName:         "debezium_slot",
		PluginName:       "pgoutput",
		PublicationName:  "dbz_publication",
		SnapshotMode:     "initial",
	}
	source := Database{
		Type:     "postgresql",
		Host:     "db.internal",
		Port:     5432,
		Database: "orders",
		Username: "replicator",
		Password: "secret",
	}

	props := d.ToConnectorProperties(source)

	assert.Equal(t, "db.internal", props["database.hostname"])
	assert.Equal(t, "5432", props["database.port"])
	assert.Equal(t, "replicator", props["database.user"])
	assert.Equal(t, "secret", props["database.password"])
	assert.Equal(t, "orders", props["database.dbname"])
	assert.Equal(t, "pgoutput", props["plugin.name"])
	assert.Equal(t, "debezium_slot", props["slot.name"])
	assert.Equal(t, "dbz_publication", props["publication.name"])
	assert.Equal(t, "io.debezium.connector.postgresql.PostgresConnector", props["connector.class"])
}

func TestDebezium_ToConnectorProperties_OmitsPostgresSpecificsForMySQL(t *testing.T) {
	d := &Debezium{
		ConnectorClass: "io.debezium.connector.mysql.MySqlConnector",
		ServerName:     "app",
		PluginName:     "pgoutput",
	}
	source := Database{Type: "mysql", Host: "db.internal", Port: 3306, Database: "orders", Username: "replicator"}

	props := d.ToConnectorProperties(source)

	// The Postgres-only properties are left out for a MySQL source, and
	// the forced-in fields always come from source regardless.
	assert.NotContains(t, props, "plugin.name")
	assert.NotContains(t, props, "slot.name")
	assert.NotContains(t, props, "publication.name")
	assert.Equal(t, "db.internal", props["database.hostname"])
	assert.Equal(t, "3306", props["database.port"])
}
