package core

import (
	"context"
	"fmt"

	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/model"
)

type StatsService struct {
	store Store
	query string
}

func NewStatsService(store Store) *StatsService {
	d := store.Dialect()
	users := d.QuoteIdent("user")
	return &StatsService{
		store: store,
		query: `SELECT
			(SELECT COUNT(*) FROM ` + d.QuoteIdent("domain") + `),
			(SELECT COUNT(*) FROM ` + users + `),
			(SELECT COUNT(*) FROM ` + d.QuoteIdent("alias") + `),
			(SELECT COALESCE(SUM(quota_bytes), 0) FROM ` + users + `),
			(SELECT COALESCE(SUM(quota_bytes_used), 0) FROM ` + users + `)`,
	}
}

// Aggregate computes counts and quota totals in a single statement so the
// figures come from one snapshot.
func (s *StatsService) Aggregate(ctx context.Context) (model.UsageTotals, error) {
	var t model.UsageTotals
	err := s.store.WithConn(ctx, func(c db.Conn) error {
		return c.QueryRowContext(ctx, s.query).Scan(
			&t.Domains, &t.Mailboxes, &t.Aliases, &t.TotalQuotaBytes, &t.TotalUsedBytes,
		)
	})
	if err != nil {
		return model.UsageTotals{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return t, nil
}
