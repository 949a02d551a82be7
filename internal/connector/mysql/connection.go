// Package mysql realizes internal/connector.Connector over MySQL
// using database/sql and the go-sql-driver/mysql driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/heterosync/dbsync/internal/connector"
)

func init() {
	connector.Register(connector.MySQL, Connect)
}

// execer is the subset of *sql.DB and *sql.Conn this package needs;
// both satisfy it, so the same query code runs against the shared
// pool and an isolated reserved connection.
type execer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Conn is the MySQL realization of connector.Connector. The primary
// instance wraps a *sql.DB pool; isolated instances returned by
// Connect wrap a single *sql.Conn reserved exclusively from that pool
// via db.Conn, satisfying the one-native-connection-per-worker
// invariant.
type Conn struct {
	cfg connector.ConnectionConfig

	db       *sql.DB   // set on the primary connector
	reserved *sql.Conn // set on an isolated connector; closed (returned) on Disconnect

	tx *sql.Tx
}

func Connect(ctx context.Context, cfg connector.ConnectionConfig) (connector.Connector, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, connector.NewConfigurationError(connector.MySQL, "host/database", "host and database are required")
	}

	tlsOpt := "false"
	switch cfg.SSLMode {
	case "", "false":
	case "skip-verify":
		tlsOpt = "skip-verify"
	default:
		tlsOpt = "true"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?tls=%s&parseTime=true",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, tlsOpt)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, connector.NewConnectionError(connector.MySQL, cfg.Host, cfg.Port, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connector.NewConnectionError(connector.MySQL, cfg.Host, cfg.Port, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)

	return &Conn{cfg: cfg, db: db}, nil
}

func (c *Conn) Dialect() connector.Dialect { return connector.MySQL }

func (c *Conn) Connect(ctx context.Context) (connector.Connector, error) {
	if c.db == nil {
		return nil, fmt.Errorf("mysql: Connect called on an already-isolated connector")
	}
	reserved, err := c.db.Conn(ctx)
	if err != nil {
		return nil, connector.NewConnectionError(connector.MySQL, c.cfg.Host, c.cfg.Port, err)
	}
	return &Conn{cfg: c.cfg, reserved: reserved}, nil
}

func (c *Conn) Disconnect(ctx context.Context) error {
	if c.reserved != nil {
		err := c.reserved.Close()
		c.reserved = nil
		return err
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if c.reserved != nil {
		return c.reserved.PingContext(ctx)
	}
	if c.db != nil {
		return c.db.PingContext(ctx)
	}
	return fmt.Errorf("mysql: connection is closed")
}

func (c *Conn) exec() execer {
	if c.tx != nil {
		return c.tx
	}
	if c.reserved != nil {
		return c.reserved
	}
	return c.db
}
