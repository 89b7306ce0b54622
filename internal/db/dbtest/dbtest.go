// Package dbtest provides a migrated, file-backed SQLite pool for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mailapi/internal/db"
)

// Options tunes the pool handed out by New.
type Options struct {
	Size           int
	AcquireTimeout time.Duration
}

// New returns a fresh database with the mail schema applied. It is closed
// when the test ends.
func New(t testing.TB) *db.Pool {
	return NewWithOptions(t, Options{Size: 4, AcquireTimeout: 2 * time.Second})
}

// NewWithOptions is New with an explicit pool size and acquire timeout.
func NewWithOptions(t testing.TB, opts Options) *db.Pool {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mail.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	sqlDB, err := sql.Open(db.SQLite.DriverName(), dsn)
	require.NoError(t, err)

	pool := db.New(sqlDB, db.SQLite, opts.Size, opts.AcquireTimeout)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), pool, zerolog.Nop()))
	return pool
}

// Exec runs a statement directly, for seeding fixtures such as
// quota_bytes_used which the API never writes.
func Exec(t testing.TB, pool *db.Pool, query string, args ...any) {
	t.Helper()
	_, err := pool.DB().ExecContext(context.Background(), pool.Dialect().Rebind(query), args...)
	require.NoError(t, err)
}
