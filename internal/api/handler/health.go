package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/mailapi/internal/api/response"
)

const Version = "1.0.0"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	db Pinger
}

func NewHealth(db Pinger) *Health {
	return &Health{db: db}
}

// Liveness is the unauthenticated probe; it never touches the database.
func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Health) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
		response.WriteJSON(w, http.StatusInternalServerError, map[string]string{"status": "unhealthy"})
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
		"version":  Version,
	})
}

func (h *Health) Info(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    "Homeserver Mail API",
		"version": Version,
		"endpoints": map[string]string{
			"domains":   "/api/domains",
			"mailboxes": "/api/mailboxes",
			"aliases":   "/api/aliases",
			"stats":     "/api/stats",
		},
	})
}
