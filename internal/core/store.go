package core

import (
	"context"

	"github.com/edvin/mailapi/internal/db"
)

// Store hands out pooled connections. *db.Pool satisfies it.
type Store interface {
	Dialect() db.Dialect
	WithConn(ctx context.Context, fn func(db.Conn) error) error
}
