package mcpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Server exposes the provisioning tools over MCP's streamable HTTP transport,
// proxying every call to the REST API.
type Server struct {
	router chi.Router
	logger zerolog.Logger
}

func New(apiURL string, logger zerolog.Logger) *Server {
	proxy := NewProxyHandler(apiURL, logger)
	tools := BuildTools(proxy)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mcpSrv := server.NewMCPServer(
		"faceblog-provisioning",
		"1.0.0",
		server.WithInstructions("FaceBlog tenant provisioning — submit, monitor, cancel, and clean up blog provisioning jobs."),
	)
	mcpSrv.AddTools(tools...)

	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv,
		server.WithEndpointPath("/"),
	))

	logger.Info().Int("tools", len(tools)).Msg("mounted MCP provisioning tools")

	return &Server{router: router, logger: logger}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
