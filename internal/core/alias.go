package core

import (
	"context"
	"fmt"

	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/model"
)

type AliasService struct {
	store Store

	listQuery         string
	listByDomainQuery string
	insertQuery       string
	deleteQuery       string
}

func NewAliasService(store Store) *AliasService {
	d := store.Dialect()
	table := d.QuoteIdent("alias")
	return &AliasService{
		store:             store,
		listQuery:         `SELECT email, destination FROM ` + table + ` ORDER BY email`,
		listByDomainQuery: d.Rebind(`SELECT email, destination FROM ` + table + ` WHERE email LIKE ? ORDER BY email`),
		insertQuery:       d.Rebind(`INSERT INTO ` + table + ` (email, destination) VALUES (?, ?)`),
		deleteQuery:       d.Rebind(`DELETE FROM ` + table + ` WHERE email = ?`),
	}
}

func (s *AliasService) List(ctx context.Context, domain string) ([]model.Alias, error) {
	query, args := s.listQuery, []any(nil)
	if domain != "" {
		query, args = s.listByDomainQuery, []any{domainPattern(domain)}
	}

	var aliases []model.Alias
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		rows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a model.Alias
			if err := rows.Scan(&a.Email, &a.Destination); err != nil {
				return err
			}
			aliases = append(aliases, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return aliases, nil
}

// Create inserts an alias. The destination is not required to exist locally.
func (s *AliasService) Create(ctx context.Context, a model.Alias) error {
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		_, err := c.ExecContext(ctx, s.insertQuery, a.Email, a.Destination)
		return err
	})
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("create alias %s: %w", a.Email, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create alias %s: %w", a.Email, err)
	}
	return nil
}

func (s *AliasService) Delete(ctx context.Context, email string) error {
	if err := s.store.WithConn(ctx, execAffectingOne(ctx, s.deleteQuery, email)); err != nil {
		return fmt.Errorf("delete alias %s: %w", email, err)
	}
	return nil
}
