package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edvin/mailapi/internal/api/request"
	"github.com/edvin/mailapi/internal/api/response"
	"github.com/edvin/mailapi/internal/model"
)

type AliasService interface {
	List(ctx context.Context, domain string) ([]model.Alias, error)
	Create(ctx context.Context, a model.Alias) error
	Delete(ctx context.Context, email string) error
}

type Alias struct {
	svc AliasService
}

func NewAlias(svc AliasService) *Alias {
	return &Alias{svc: svc}
}

func (h *Alias) List(w http.ResponseWriter, r *http.Request) {
	domain, err := request.DomainFilter(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	aliases, err := h.svc.List(r.Context(), domain)
	if err != nil {
		writeServiceError(w, r, err, failure{generic: "Failed to fetch aliases"})
		return
	}
	if aliases == nil {
		aliases = []model.Alias{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"aliases": aliases})
}

func (h *Alias) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAlias
	if err := request.Decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	alias := model.Alias{Email: req.Address, Destination: req.Destination}
	if err := h.svc.Create(r.Context(), alias); err != nil {
		writeServiceError(w, r, err, failure{conflict: "Alias already exists", generic: "Failed to create alias"})
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{
		"message":     fmt.Sprintf("Alias %s -> %s created", alias.Email, alias.Destination),
		"alias":       alias.Email,
		"destination": alias.Destination,
	})
}

func (h *Alias) Delete(w http.ResponseWriter, r *http.Request) {
	email, err := request.PathEmail(r, "alias")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), email); err != nil {
		writeServiceError(w, r, err, failure{notFound: "Alias not found", generic: "Failed to delete alias"})
		return
	}

	response.WriteMessage(w, http.StatusOK, fmt.Sprintf("Alias %s deleted", email))
}
