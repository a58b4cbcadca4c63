package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sergiomvj/faceblog/internal/api/handler"
	mw "github.com/sergiomvj/faceblog/internal/api/middleware"
	"github.com/sergiomvj/faceblog/internal/config"
	"github.com/sergiomvj/faceblog/internal/core"
	"github.com/sergiomvj/faceblog/internal/engine"
)

//go:embed docs/openapi.json
var openapiJSON []byte

type Server struct {
	router    chi.Router
	logger    zerolog.Logger
	provision *core.ProvisionService
	engine    *engine.Engine
	pool      *pgxpool.Pool
	cfg       *config.Config
}

// NewServer wires the HTTP surface. pool may be nil when the in-memory job
// store is in use; readiness then only covers the process itself.
func NewServer(logger zerolog.Logger, provision *core.ProvisionService, eng *engine.Engine, pool *pgxpool.Pool, cfg *config.Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		provision: provision,
		engine:    eng,
		pool:      pool,
		cfg:       cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// API documentation (no auth required)
	s.router.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openapiJSON)
	})
	s.router.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(scalarHTML))
	})

	provision := handler.NewProvision(s.provision, s.cfg.RetentionWindow)
	callback := handler.NewCallback(s.engine)
	watch := handler.NewWatch(s.provision)

	s.router.Route("/api/v1/provisioning", func(r chi.Router) {
		// Callbacks carry no admin credentials; external platforms POST here.
		r.Post("/callbacks/deploy", callback.DeployResult)
		r.Post("/callbacks/domain-verification", callback.DomainVerified)

		r.Group(func(r chi.Router) {
			if s.cfg.AdminAPIKey != "" {
				r.Use(mw.Auth(s.cfg.AdminAPIKey))
			}

			r.Post("/jobs", provision.Submit)
			r.Post("/jobs/bulk", provision.Bulk)
			r.Get("/jobs", provision.List)
			r.Get("/jobs/{id}", provision.Get)
			r.Delete("/jobs/{id}", provision.Delete)
			r.Get("/jobs/{id}/watch", watch.Job)
			r.Post("/cleanup", provision.Cleanup)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["jobs_db"] = err.Error()
			healthy = false
		} else {
			checks["jobs_db"] = "ok"
		}
	} else {
		checks["jobs_db"] = "in-memory"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

const scalarHTML = `<!DOCTYPE html>
<html>
<head>
  <title>FaceBlog Provisioning API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
  <script id="api-reference" data-url="/docs/openapi.json"></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
