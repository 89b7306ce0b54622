package mcpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/edvin/mailapi/internal/api/handler"
	"github.com/edvin/mailapi/internal/client"
)

// Server exposes the mail API as MCP tools over streamable HTTP.
type Server struct {
	router chi.Router
	logger zerolog.Logger
	cfg    *Config
	tools  []server.ServerTool
}

// New creates an MCP server that forwards tool calls to cfg.APIURL.
func New(cfg *Config, logger zerolog.Logger) *Server {
	return NewWithAPI(cfg, client.NewClient(cfg.APIURL, cfg.APIToken), logger)
}

// NewWithAPI is New with an explicit backend.
func NewWithAPI(cfg *Config, api MailAPI, logger zerolog.Logger) *Server {
	tools := BuildTools(api, cfg)

	mcpSrv := server.NewMCPServer(
		"mail-api",
		handler.Version,
		server.WithInstructions("Mail server administration: domains, mailboxes, aliases and usage statistics."),
		server.WithToolCapabilities(false),
	)
	mcpSrv.AddTools(tools...)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	router.Group(func(r chi.Router) {
		r.Use(requireAPIKey(cfg.APIKeys))
		r.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv, server.WithEndpointPath("/")))
	})

	logger.Info().Int("tools", len(tools)).Msg("mounted MCP endpoint at /mcp")

	return &Server{
		router: router,
		logger: logger,
		cfg:    cfg,
		tools:  tools,
	}
}

// Tools returns the registered tools.
func (s *Server) Tools() []server.ServerTool {
	return s.tools
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
