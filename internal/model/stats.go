package model

import "math"

const bytesPerGB = 1073741824

// UsageTotals are the raw aggregates read from the store.
type UsageTotals struct {
	Domains         int64
	Mailboxes       int64
	Aliases         int64
	TotalQuotaBytes int64
	TotalUsedBytes  int64
}

// Stats is the derived usage report served by /api/stats.
type Stats struct {
	Domains         int64   `json:"domains"`
	Mailboxes       int64   `json:"mailboxes"`
	Aliases         int64   `json:"aliases"`
	TotalQuotaBytes int64   `json:"total_quota_bytes"`
	TotalUsedBytes  int64   `json:"total_used_bytes"`
	TotalQuotaGB    float64 `json:"total_quota_gb"`
	TotalUsedGB     float64 `json:"total_used_gb"`
	UsagePercent    float64 `json:"usage_percent"`
}

// NewStats derives the GB figures and usage percentage. A zero quota total
// is treated as 1 byte so the percentage stays defined.
func NewStats(t UsageTotals) Stats {
	denom := t.TotalQuotaBytes
	if denom == 0 {
		denom = 1
	}
	return Stats{
		Domains:         t.Domains,
		Mailboxes:       t.Mailboxes,
		Aliases:         t.Aliases,
		TotalQuotaBytes: t.TotalQuotaBytes,
		TotalUsedBytes:  t.TotalUsedBytes,
		TotalQuotaGB:    round2(float64(t.TotalQuotaBytes) / bytesPerGB),
		TotalUsedGB:     round2(float64(t.TotalUsedBytes) / bytesPerGB),
		UsagePercent:    round2(float64(t.TotalUsedBytes) / float64(denom) * 100),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
