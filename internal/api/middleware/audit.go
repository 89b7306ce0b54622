package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AuditLogger records mutating requests as structured log entries. Entries
// are written from a single goroutine so slow sinks never block requests.
type AuditLogger struct {
	logger zerolog.Logger
	ch     chan auditEntry
	done   chan struct{}
}

const maxAuditBody = 64 << 10

type readCloser struct {
	io.Reader
	io.Closer
}

type auditEntry struct {
	RequestID    string
	RemoteAddr   string
	Method       string
	Path         string
	ResourceType string
	ResourceID   string
	Action       string
	StatusCode   int
	RequestBody  json.RawMessage
}

func NewAuditLogger(logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		logger: logger.With().Str("component", "audit").Logger(),
		ch:     make(chan auditEntry, 1024),
		done:   make(chan struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	defer close(al.done)
	for entry := range al.ch {
		ev := al.logger.Info().
			Str("request_id", entry.RequestID).
			Str("remote_addr", entry.RemoteAddr).
			Str("method", entry.Method).
			Str("path", entry.Path).
			Int("status", entry.StatusCode)
		if entry.ResourceType != "" {
			ev = ev.Str("resource_type", entry.ResourceType)
		}
		if entry.ResourceID != "" {
			ev = ev.Str("resource_id", entry.ResourceID)
		}
		if entry.Action != "" {
			ev = ev.Str("action", entry.Action)
		}
		if len(entry.RequestBody) > 0 {
			ev = ev.RawJSON("request_body", entry.RequestBody)
		}
		ev.Msg("audit")
	}
}

// Close flushes queued entries and stops the writer.
func (al *AuditLogger) Close() {
	close(al.ch)
	<-al.done
}

// Middleware returns a chi middleware that logs mutating API requests.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		// Read a bounded prefix and hand the handler the full body.
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditBody))
			r.Body = readCloser{io.MultiReader(bytes.NewReader(bodyBytes), r.Body), r.Body}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		resourceType, resourceID, action := extractResource(r.URL.Path)

		var sanitizedBody json.RawMessage
		if len(bodyBytes) > 0 && json.Valid(bodyBytes) {
			sanitizedBody = sanitizeBody(bodyBytes)
		}

		select {
		case al.ch <- auditEntry{
			RequestID:    middleware.GetReqID(r.Context()),
			RemoteAddr:   r.RemoteAddr,
			Method:       r.Method,
			Path:         r.URL.Path,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Action:       action,
			StatusCode:   sw.status,
			RequestBody:  sanitizedBody,
		}:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

// extractResource splits /api/<type>[/<id>[/<action>]].
//
//	/api/domains                          -> domains
//	/api/mailboxes/a@example.com          -> mailboxes, a@example.com
//	/api/mailboxes/a@example.com/password -> mailboxes, a@example.com, password
func extractResource(path string) (resourceType, resourceID, action string) {
	parts := strings.SplitN(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/", 3)
	switch len(parts) {
	case 3:
		action = parts[2]
		fallthrough
	case 2:
		resourceID = parts[1]
		fallthrough
	case 1:
		resourceType = parts[0]
	}
	return resourceType, resourceID, action
}

// sensitiveFields are redacted from audit entries.
var sensitiveFields = map[string]bool{
	"password": true, "new_password": true, "token": true, "api_key": true, "secret": true,
}

// sanitizeBody redacts sensitive fields. Bodies that are not JSON objects
// are dropped entirely rather than logged raw.
func sanitizeBody(body []byte) json.RawMessage {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	for k := range data {
		if sensitiveFields[strings.ToLower(k)] {
			data[k] = "[REDACTED]"
		}
	}
	sanitized, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return sanitized
}
