package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/edvin/mailapi/internal/api/handler"
	mw "github.com/edvin/mailapi/internal/api/middleware"
	"github.com/edvin/mailapi/internal/api/response"
	"github.com/edvin/mailapi/internal/core"
	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/ratelimit"
)

// Per-route limits layered on top of the default policy.
var (
	domainsReadLimit    = ratelimit.MustParseRules("30 per minute")
	domainsWriteLimit   = ratelimit.MustParseRules("10 per minute")
	mailboxCreateLimit  = ratelimit.MustParseRules("10 per minute")
	passwordChangeLimit = ratelimit.MustParseRules("5 per minute")
)

const (
	msgEndpointNotFound = "Endpoint not found"
	msgMethodNotAllowed = "Method not allowed"
)

type Options struct {
	Token          string
	AllowedOrigins []string
	Password       handler.PasswordPolicy

	// Limiter is nil when rate limiting is disabled.
	Limiter       *ratelimit.Limiter
	DefaultLimits []ratelimit.Rule
}

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	services    *core.Services
	pool        *db.Pool
	opts        Options
	auditLogger *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, pool *db.Pool, opts Options) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		services:    core.NewServices(pool),
		pool:        pool,
		opts:        opts,
		auditLogger: mw.NewAuditLogger(logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(mw.Recoverer)
	s.router.Use(mw.Metrics)
	s.router.Use(mw.SecureHeaders)
	s.router.Use(mw.CORS(s.opts.AllowedOrigins))
	s.router.Use(s.opts.Limiter.Middleware("default", s.opts.DefaultLimits))
}

func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.WriteError(w, http.StatusNotFound, msgEndpointNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.WriteError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	health := handler.NewHealth(s.pool)
	s.router.Get("/health", health.Liveness)

	limit := s.opts.Limiter.Middleware

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.Auth(s.opts.Token))
		r.Use(s.auditLogger.Middleware)

		r.Get("/health/detailed", health.Detailed)
		r.Get("/info", health.Info)

		// Domains
		domain := handler.NewDomain(s.services.Domain)
		r.With(limit("domains-read", domainsReadLimit)).Get("/domains", domain.List)
		r.With(limit("domains-write", domainsWriteLimit)).Post("/domains", domain.Create)
		r.With(limit("domains-write", domainsWriteLimit)).Delete("/domains/{domain}", domain.Delete)

		// Mailboxes
		mailbox := handler.NewMailbox(s.services.Mailbox, s.opts.Password)
		r.Get("/mailboxes", mailbox.List)
		r.With(limit("mailbox-create", mailboxCreateLimit)).Post("/mailboxes", mailbox.Create)
		r.Delete("/mailboxes/{email}", mailbox.Delete)
		r.With(limit("password-change", passwordChangeLimit)).Put("/mailboxes/{email}/password", mailbox.ChangePassword)

		// Aliases
		alias := handler.NewAlias(s.services.Alias)
		r.Get("/aliases", alias.List)
		r.Post("/aliases", alias.Create)
		r.Delete("/aliases/{alias}", alias.Delete)

		// Stats
		stats := handler.NewStats(s.services.Stats)
		r.Get("/stats", stats.Get)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close flushes pending audit entries.
func (s *Server) Close() {
	s.auditLogger.Close()
}
