package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/db/dbtest"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in   string
		want db.Dialect
	}{
		{"mysql", db.MySQL},
		{"MariaDB", db.MySQL},
		{"postgres", db.Postgres},
		{"pgx", db.Postgres},
		{"sqlite", db.SQLite},
	}
	for _, tt := range tests {
		got, err := db.ParseDialect(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := db.ParseDialect("mssql")
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT email FROM t WHERE a = ? AND b LIKE ?"
	assert.Equal(t, q, db.MySQL.Rebind(q))
	assert.Equal(t, q, db.SQLite.Rebind(q))
	assert.Equal(t, "SELECT email FROM t WHERE a = $1 AND b LIKE $2", db.Postgres.Rebind(q))
}

func TestDialect_QuoteIdent(t *testing.T) {
	assert.Equal(t, "`user`", db.MySQL.QuoteIdent("user"))
	assert.Equal(t, `"user"`, db.Postgres.QuoteIdent("user"))
	assert.Equal(t, `"we""ird"`, db.SQLite.QuoteIdent(`we"ird`))
}

func TestDialect_DriverName(t *testing.T) {
	assert.Equal(t, "mysql", db.MySQL.DriverName())
	assert.Equal(t, "pgx", db.Postgres.DriverName())
	assert.Equal(t, "sqlite", db.SQLite.DriverName())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, db.IsUniqueViolation(nil))
	assert.False(t, db.IsUniqueViolation(errors.New("boom")))
	assert.True(t, db.IsUniqueViolation(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, db.IsUniqueViolation(&mysql.MySQLError{Number: 1045}))
	assert.True(t, db.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, db.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	pool := dbtest.New(t)
	ctx := context.Background()

	dbtest.Exec(t, pool, `INSERT INTO "domain" (name) VALUES (?)`, "example.com")
	_, err := pool.DB().ExecContext(ctx, `INSERT INTO "domain" (name) VALUES (?)`, "example.com")
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestMigrations_Idempotent(t *testing.T) {
	pool := dbtest.New(t)
	require.NoError(t, db.RunMigrations(context.Background(), pool, zerolog.Nop()))
}

func TestWithConn_ReleasesOnError(t *testing.T) {
	pool := dbtest.New(t)
	sentinel := errors.New("statement failed")

	err := pool.WithConn(context.Background(), func(c db.Conn) error {
		assert.Equal(t, 1, pool.InUse())
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, pool.InUse())
}

func TestWithConn_ReleasesOnPanic(t *testing.T) {
	pool := dbtest.New(t)

	assert.Panics(t, func() {
		_ = pool.WithConn(context.Background(), func(c db.Conn) error {
			panic("driver exploded")
		})
	})
	assert.Equal(t, 0, pool.InUse())
}

func TestAcquire_Exhausted(t *testing.T) {
	pool := dbtest.NewWithOptions(t, dbtest.Options{Size: 1, AcquireTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	held, err := pool.Acquire(ctx)
	require.NoError(t, err)

	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, db.ErrPoolExhausted)

	require.NoError(t, held.Close())
	again, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, again.Close())
	assert.Equal(t, 0, pool.InUse())
}

func TestAcquire_CallerCancelled(t *testing.T) {
	pool := dbtest.NewWithOptions(t, dbtest.Options{Size: 1, AcquireTimeout: time.Second})

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.Acquire(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrPoolExhausted)
}

func TestWithConn_ConcurrentBounded(t *testing.T) {
	const size = 3
	pool := dbtest.NewWithOptions(t, dbtest.Options{Size: size, AcquireTimeout: 5 * time.Second})

	var (
		mu      sync.Mutex
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.WithConn(context.Background(), func(c db.Conn) error {
				mu.Lock()
				if n := pool.InUse(); n > maxSeen {
					maxSeen = n
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen, size)
	assert.Equal(t, 0, pool.InUse())
}

func TestPing(t *testing.T) {
	pool := dbtest.New(t)
	require.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, 0, pool.InUse())
}
