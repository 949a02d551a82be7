// Package postgres realizes internal/connector.Connector over
// PostgreSQL using pgx/v5 and pgxpool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heterosync/dbsync/internal/connector"
)

func init() {
	connector.Register(connector.Postgres, Connect)
}

// pgxExecutor is the subset of *pgxpool.Pool and *pgxpool.Conn this
// package needs. Both types satisfy it, so the same query/exec code
// runs against the shared administrative pool and against an isolated
// acquired connection without a type switch.
type pgxExecutor interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Conn is the Postgres realization of connector.Connector. The
// primary instance wraps a pgxpool.Pool; isolated instances returned
// by Connect wrap a single *pgxpool.Conn acquired exclusively from
// that pool, satisfying the one-native-connection-per-worker
// invariant without the overhead of a second pool per worker.
type Conn struct {
	cfg    connector.ConnectionConfig
	schema string

	pool     *pgxpool.Pool // set on the primary connector
	acquired *pgxpool.Conn // set on an isolated connector; released on Disconnect

	tx pgx.Tx

	cursorSeq *uint64
}

// Connect builds the DSN from cfg and opens a pgxpool against it,
// following the teacher's postgres.Connect DSN-building shape.
func Connect(ctx context.Context, cfg connector.ConnectionConfig) (connector.Connector, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, connector.NewConfigurationError(connector.Postgres, "host/database", "host and database are required")
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}

	dsn := buildDSN(cfg)
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, connector.NewConnectionError(connector.Postgres, cfg.Host, cfg.Port, err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, connector.NewConnectionError(connector.Postgres, cfg.Host, cfg.Port, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, connector.NewConnectionError(connector.Postgres, cfg.Host, cfg.Port, err)
	}

	seq := new(uint64)
	return &Conn{cfg: cfg, schema: schema, pool: pool, cursorSeq: seq}, nil
}

func buildDSN(cfg connector.ConnectionConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "postgres://%s:%s@%s:%d/%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	fmt.Fprintf(&b, "?sslmode=%s", sslMode)
	return b.String()
}

func (c *Conn) Dialect() connector.Dialect { return connector.Postgres }

// Connect acquires a single exclusive connection from the shared pool
// and returns a Conn bound to it. The caller must Disconnect it (or
// use connector.WithConnection) to return the connection to the pool.
func (c *Conn) Connect(ctx context.Context) (connector.Connector, error) {
	if c.pool == nil {
		return nil, fmt.Errorf("postgres: Connect called on an already-isolated connector")
	}
	acquired, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, connector.NewConnectionError(connector.Postgres, c.cfg.Host, c.cfg.Port, err)
	}
	return &Conn{cfg: c.cfg, schema: c.schema, acquired: acquired, cursorSeq: c.cursorSeq}, nil
}

func (c *Conn) Disconnect(ctx context.Context) error {
	if c.acquired != nil {
		c.acquired.Release()
		c.acquired = nil
		return nil
	}
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if c.acquired != nil {
		return c.acquired.Ping(ctx)
	}
	if c.pool != nil {
		return c.pool.Ping(ctx)
	}
	return fmt.Errorf("postgres: connection is closed")
}

// exec returns the active transaction if one is open, else the
// acquired isolated connection, else the shared pool.
func (c *Conn) exec() pgxExecutor {
	if c.tx != nil {
		return c.tx
	}
	if c.acquired != nil {
		return c.acquired
	}
	return c.pool
}

func (c *Conn) nextCursorName(table string) string {
	n := atomic.AddUint64(c.cursorSeq, 1)
	return fmt.Sprintf("dbsync_%s_%d", sanitizeIdent(table), n)
}
