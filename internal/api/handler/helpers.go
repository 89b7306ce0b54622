package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/mailapi/internal/api/request"
	"github.com/edvin/mailapi/internal/api/response"
	"github.com/edvin/mailapi/internal/core"
)

// failure names the client messages for one operation's error outcomes.
type failure struct {
	notFound string
	conflict string
	generic  string
}

// writeServiceError maps err to a status and client message. Storage
// details are logged and never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, f failure) {
	var verr *request.ValidationError
	switch {
	case errors.As(err, &verr):
		response.WriteError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, core.ErrNotFound) && f.notFound != "":
		response.WriteError(w, http.StatusNotFound, f.notFound)
	case errors.Is(err, core.ErrAlreadyExists) && f.conflict != "":
		response.WriteError(w, http.StatusConflict, f.conflict)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(f.generic)
		response.WriteError(w, http.StatusInternalServerError, f.generic)
	}
}

// writeBadRequest writes a request parsing error as 400.
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, err, failure{generic: "Internal server error"})
}
