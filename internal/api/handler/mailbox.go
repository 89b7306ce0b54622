package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edvin/mailapi/internal/api/request"
	"github.com/edvin/mailapi/internal/api/response"
	"github.com/edvin/mailapi/internal/crypto"
	"github.com/edvin/mailapi/internal/model"
	"github.com/edvin/mailapi/internal/validate"
)

const bytesPerMB = 1048576

type MailboxService interface {
	List(ctx context.Context, domain string) ([]model.Mailbox, error)
	Create(ctx context.Context, m model.NewMailbox) error
	Delete(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// PasswordPolicy controls hashing and the optional strength floor applied
// on mailbox creation and password change.
type PasswordPolicy struct {
	Hasher   crypto.Hasher
	MinScore int
}

type Mailbox struct {
	svc    MailboxService
	policy PasswordPolicy
}

func NewMailbox(svc MailboxService, policy PasswordPolicy) *Mailbox {
	return &Mailbox{svc: svc, policy: policy}
}

func (h *Mailbox) List(w http.ResponseWriter, r *http.Request) {
	domain, err := request.DomainFilter(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	mailboxes, err := h.svc.List(r.Context(), domain)
	if err != nil {
		writeServiceError(w, r, err, failure{generic: "Failed to fetch mailboxes"})
		return
	}
	if mailboxes == nil {
		mailboxes = []model.Mailbox{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"mailboxes": mailboxes})
}

func (h *Mailbox) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateMailbox
	if err := request.Decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	hash, err := h.hashPassword(req.Password, req.Email, req.Domain)
	if err != nil {
		writeServiceError(w, r, err, failure{generic: "Failed to create mailbox"})
		return
	}

	err = h.svc.Create(r.Context(), model.NewMailbox{
		Email:        req.Address,
		PasswordHash: hash,
		QuotaBytes:   req.QuotaBytes,
	})
	if err != nil {
		writeServiceError(w, r, err, failure{conflict: "Mailbox already exists", generic: "Failed to create mailbox"})
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":  fmt.Sprintf("Mailbox %s created", req.Address),
		"email":    req.Address,
		"quota_mb": float64(req.QuotaBytes) / bytesPerMB,
	})
}

func (h *Mailbox) Delete(w http.ResponseWriter, r *http.Request) {
	email, err := request.PathEmail(r, "email")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), email); err != nil {
		writeServiceError(w, r, err, failure{notFound: "Mailbox not found", generic: "Failed to delete mailbox"})
		return
	}

	response.WriteMessage(w, http.StatusOK, fmt.Sprintf("Mailbox %s deleted", email))
}

func (h *Mailbox) ChangePassword(w http.ResponseWriter, r *http.Request) {
	email, err := request.PathEmail(r, "email")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	var req request.ChangePassword
	if err := request.Decode(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	local, domain, _ := strings.Cut(email, "@")
	hash, err := h.hashPassword(req.Password, local, domain)
	if err != nil {
		writeServiceError(w, r, err, failure{generic: "Failed to change password"})
		return
	}

	if err := h.svc.UpdatePassword(r.Context(), email, hash); err != nil {
		writeServiceError(w, r, err, failure{notFound: "Mailbox not found", generic: "Failed to change password"})
		return
	}

	response.WriteMessage(w, http.StatusOK, fmt.Sprintf("Password changed for %s", email))
}

// hashPassword enforces the strength floor and hashes. Policy rejections
// come back as *request.ValidationError.
func (h *Mailbox) hashPassword(password string, userInputs ...string) (string, error) {
	if h.policy.MinScore > 0 && validate.PasswordStrength(password, userInputs...) < h.policy.MinScore {
		return "", &request.ValidationError{Message: "Password is too weak"}
	}

	hash, err := h.policy.Hasher.Hash(password)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return "", &request.ValidationError{Message: "Password must be at most 72 bytes"}
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
