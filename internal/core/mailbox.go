package core

import (
	"context"
	"fmt"

	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/model"
)

type MailboxService struct {
	store Store

	listQuery         string
	listByDomainQuery string
	insertQuery       string
	deleteQuery       string
	passwordQuery     string
}

func NewMailboxService(store Store) *MailboxService {
	d := store.Dialect()
	table := d.QuoteIdent("user")
	const columns = `email, quota_bytes, quota_bytes_used`
	return &MailboxService{
		store:             store,
		listQuery:         `SELECT ` + columns + ` FROM ` + table + ` ORDER BY email`,
		listByDomainQuery: d.Rebind(`SELECT ` + columns + ` FROM ` + table + ` WHERE email LIKE ? ORDER BY email`),
		insertQuery:       d.Rebind(`INSERT INTO ` + table + ` (email, password, quota_bytes, enabled) VALUES (?, ?, ?, ?)`),
		deleteQuery:       d.Rebind(`DELETE FROM ` + table + ` WHERE email = ?`),
		passwordQuery:     d.Rebind(`UPDATE ` + table + ` SET password = ? WHERE email = ?`),
	}
}

// List returns mailboxes, restricted to one domain when domain is non-empty.
// The domain must already be validated; it is bound as a suffix pattern.
func (s *MailboxService) List(ctx context.Context, domain string) ([]model.Mailbox, error) {
	query, args := s.listQuery, []any(nil)
	if domain != "" {
		query, args = s.listByDomainQuery, []any{domainPattern(domain)}
	}

	var mailboxes []model.Mailbox
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		rows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m model.Mailbox
			if err := rows.Scan(&m.Email, &m.QuotaBytes, &m.QuotaBytesUsed); err != nil {
				return err
			}
			mailboxes = append(mailboxes, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}
	return mailboxes, nil
}

// Create inserts an enabled mailbox with an already hashed password.
func (s *MailboxService) Create(ctx context.Context, m model.NewMailbox) error {
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		_, err := c.ExecContext(ctx, s.insertQuery, m.Email, m.PasswordHash, m.QuotaBytes, true)
		return err
	})
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("create mailbox %s: %w", m.Email, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create mailbox %s: %w", m.Email, err)
	}
	return nil
}

func (s *MailboxService) Delete(ctx context.Context, email string) error {
	if err := s.store.WithConn(ctx, execAffectingOne(ctx, s.deleteQuery, email)); err != nil {
		return fmt.Errorf("delete mailbox %s: %w", email, err)
	}
	return nil
}

// UpdatePassword replaces the stored hash. Hashes are salted, so an update
// always changes the row when it exists.
func (s *MailboxService) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if err := s.store.WithConn(ctx, execAffectingOne(ctx, s.passwordQuery, passwordHash, email)); err != nil {
		return fmt.Errorf("update password for %s: %w", email, err)
	}
	return nil
}

func domainPattern(domain string) string {
	return "%@" + domain
}
