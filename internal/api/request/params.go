package request

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/mailapi/internal/validate"
)

const (
	MsgInvalidDomain = "Invalid domain format"
	MsgInvalidEmail  = "Invalid email format"
)

// PathDomain returns the normalized {key} URL parameter, which must be a domain.
func PathDomain(r *http.Request, key string) (string, error) {
	d := validate.Normalize(pathParam(r, key))
	if !validate.Domain(d) {
		return "", invalid(MsgInvalidDomain)
	}
	return d, nil
}

// PathEmail returns the normalized {key} URL parameter, which must be an address.
func PathEmail(r *http.Request, key string) (string, error) {
	e := validate.Normalize(pathParam(r, key))
	if !validate.Email(e) {
		return "", invalid(MsgInvalidEmail)
	}
	return e, nil
}

// DomainFilter returns the optional ?domain= filter. An absent or blank
// value means no filter.
func DomainFilter(r *http.Request) (string, error) {
	d := validate.Normalize(r.URL.Query().Get("domain"))
	if d == "" {
		return "", nil
	}
	if !validate.Domain(d) {
		return "", invalid(MsgInvalidDomain)
	}
	return d, nil
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}
