package core

import (
	"context"
	"fmt"

	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/model"
)

type DomainService struct {
	store Store

	listQuery   string
	insertQuery string
	deleteQuery string
}

func NewDomainService(store Store) *DomainService {
	d := store.Dialect()
	table := d.QuoteIdent("domain")
	return &DomainService{
		store:       store,
		listQuery:   `SELECT name FROM ` + table + ` ORDER BY name`,
		insertQuery: d.Rebind(`INSERT INTO ` + table + ` (name) VALUES (?)`),
		deleteQuery: d.Rebind(`DELETE FROM ` + table + ` WHERE name = ?`),
	}
}

func (s *DomainService) List(ctx context.Context) ([]model.Domain, error) {
	var domains []model.Domain
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		rows, err := c.QueryContext(ctx, s.listQuery)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d model.Domain
			if err := rows.Scan(&d.Name); err != nil {
				return err
			}
			domains = append(domains, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

// Create inserts a domain. name must already be normalized and validated.
func (s *DomainService) Create(ctx context.Context, name string) error {
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		_, err := c.ExecContext(ctx, s.insertQuery, name)
		return err
	})
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("create domain %s: %w", name, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create domain %s: %w", name, err)
	}
	return nil
}

func (s *DomainService) Delete(ctx context.Context, name string) error {
	if err := s.store.WithConn(ctx, execAffectingOne(ctx, s.deleteQuery, name)); err != nil {
		return fmt.Errorf("delete domain %s: %w", name, err)
	}
	return nil
}

// execAffectingOne runs a single statement and maps zero affected rows to
// ErrNotFound.
func execAffectingOne(ctx context.Context, query string, args ...any) func(db.Conn) error {
	return func(c db.Conn) error {
		res, err := c.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
}
