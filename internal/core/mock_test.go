package core

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/mailapi/internal/db"
)

// mockStore implements Store without a database, for failure paths.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Dialect() db.Dialect {
	return db.MySQL
}

func (m *mockStore) WithConn(ctx context.Context, fn func(db.Conn) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}
