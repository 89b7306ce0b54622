package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/edvin/mailapi/internal/config"
)

// ErrPoolExhausted is returned by Acquire when no connection frees up
// within the acquire timeout.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// Conn is the subset of *sql.Conn the repositories use.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Pool is a bounded set of reusable database connections. Connections are
// opened lazily up to the configured size and returned to the pool on release.
type Pool struct {
	db             *sql.DB
	dialect        Dialect
	acquireTimeout time.Duration
}

// Open builds a Pool from configuration and verifies the database is reachable.
func Open(ctx context.Context, cfg *config.Config) (*Pool, error) {
	dialect, err := ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	if dialect == MySQL {
		tlsCfg, err := cfg.DatabaseTLS()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			if err := mysql.RegisterTLSConfig(config.MySQLTLSConfigName, tlsCfg); err != nil {
				return nil, fmt.Errorf("register mysql tls config: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	pool := New(sqlDB, dialect, cfg.DBPoolSize, cfg.DBAcquireTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DBAcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	return pool, nil
}

// New wraps an already opened *sql.DB. size bounds the number of open
// connections; idle connections beyond it are never kept either.
func New(sqlDB *sql.DB, dialect Dialect, size int, acquireTimeout time.Duration) *Pool {
	sqlDB.SetMaxOpenConns(size)
	sqlDB.SetMaxIdleConns(size)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return &Pool{db: sqlDB, dialect: dialect, acquireTimeout: acquireTimeout}
}

// Dialect returns the SQL dialect of the underlying database.
func (p *Pool) Dialect() Dialect { return p.dialect }

// DB exposes the underlying handle for migrations.
func (p *Pool) DB() *sql.DB { return p.db }

// Acquire checks out a dedicated connection. The caller must Close it.
// Waiting is bounded by the acquire timeout; a timeout while ctx itself is
// still live is reported as ErrPoolExhausted.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// WithConn runs fn on a checked-out connection and releases it on every
// exit path, including a panic in fn.
func (p *Pool) WithConn(ctx context.Context, fn func(Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

// Ping verifies a connection can be acquired and the server answers.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(c Conn) error {
		conn, ok := c.(*sql.Conn)
		if !ok {
			return nil
		}
		return conn.PingContext(ctx)
	})
}

// InUse reports the number of connections currently checked out.
func (p *Pool) InUse() int {
	return p.db.Stats().InUse
}

// Stats returns the underlying pool statistics.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close closes every connection in the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}
