package connector

// ConnectionConfig carries everything a dialect's Factory needs to
// open a native connection. It mirrors the per-database fields of
// spec's `source`/`target` configuration blocks (see
// internal/syncconfig) without importing that package, so connectors
// have no dependency on the YAML layer.
type ConnectionConfig struct {
	Dialect  Dialect
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// SSLMode is passed through verbatim to the Postgres driver (e.g.
	// "disable", "require"). For MySQL, "" and "false" disable TLS,
	// "skip-verify" is passed on as is, and any other value enables TLS.
	SSLMode string

	// Schema is the Postgres logical schema to qualify statements with
	// (default "public"). Ignored for MySQL, which has no equivalent
	// concept separate from Database.
	Schema string

	// MaxOpenConns bounds the pool/connection count for the shared
	// administrative connection. Isolated per-worker connections opened
	// via Connector.Connect always get exactly one native connection
	// regardless of this setting.
	MaxOpenConns int
}
