package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edvin/mailapi/internal/api/request"
	"github.com/edvin/mailapi/internal/api/response"
	"github.com/edvin/mailapi/internal/model"
)

type DomainService interface {
	List(ctx context.Context) ([]model.Domain, error)
	Create(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
}

type Domain struct {
	svc DomainService
}

func NewDomain(svc DomainService) *Domain {
	return &Domain{svc: svc}
}

func (h *Domain) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, failure{generic: "Failed to fetch domains"})
		return
	}
	if domains == nil {
		domains = []model.Domain{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

func (h *Domain) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDomain
	if err := request.Decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	if err := h.svc.Create(r.Context(), req.Domain); err != nil {
		writeServiceError(w, r, err, failure{conflict: "Domain already exists", generic: "Failed to add domain"})
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Domain %s added successfully", req.Domain),
		"domain":  req.Domain,
	})
}

func (h *Domain) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := request.PathDomain(r, "domain")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), name); err != nil {
		writeServiceError(w, r, err, failure{notFound: "Domain not found", generic: "Failed to delete domain"})
		return
	}

	response.WriteMessage(w, http.StatusOK, fmt.Sprintf("Domain %s deleted", name))
}
