package handler

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/mailapi/internal/crypto"
	"github.com/edvin/mailapi/internal/model"
)

type mockDomainService struct {
	mock.Mock
}

func (m *mockDomainService) List(ctx context.Context) ([]model.Domain, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Domain), args.Error(1)
}

func (m *mockDomainService) Create(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockDomainService) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

type mockMailboxService struct {
	mock.Mock
}

func (m *mockMailboxService) List(ctx context.Context, domain string) ([]model.Mailbox, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Mailbox), args.Error(1)
}

func (m *mockMailboxService) Create(ctx context.Context, mb model.NewMailbox) error {
	return m.Called(ctx, mb).Error(0)
}

func (m *mockMailboxService) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockMailboxService) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return m.Called(ctx, email, passwordHash).Error(0)
}

type mockAliasService struct {
	mock.Mock
}

func (m *mockAliasService) List(ctx context.Context, domain string) ([]model.Alias, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alias), args.Error(1)
}

func (m *mockAliasService) Create(ctx context.Context, a model.Alias) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAliasService) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockStatsService struct {
	mock.Mock
}

func (m *mockStatsService) Aggregate(ctx context.Context) (model.UsageTotals, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.UsageTotals), args.Error(1)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// reverseHasher yields a predictable "hash" so tests can assert on what
// reaches the repository.
type reverseHasher struct {
	err error
}

func (h reverseHasher) Scheme() string { return "test" }

func (h reverseHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	var b strings.Builder
	for i := len(password) - 1; i >= 0; i-- {
		b.WriteByte(password[i])
	}
	return "rev:" + b.String(), nil
}

var _ crypto.Hasher = reverseHasher{}
