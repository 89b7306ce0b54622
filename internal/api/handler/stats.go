package handler

import (
	"context"
	"net/http"

	"github.com/edvin/mailapi/internal/api/response"
	"github.com/edvin/mailapi/internal/model"
)

type StatsService interface {
	Aggregate(ctx context.Context) (model.UsageTotals, error)
}

type Stats struct {
	svc StatsService
}

func NewStats(svc StatsService) *Stats {
	return &Stats{svc: svc}
}

func (h *Stats) Get(w http.ResponseWriter, r *http.Request) {
	totals, err := h.svc.Aggregate(r.Context())
	if err != nil {
		writeServiceError(w, r, err, failure{generic: "Failed to fetch statistics"})
		return
	}
	response.WriteJSON(w, http.StatusOK, model.NewStats(totals))
}
