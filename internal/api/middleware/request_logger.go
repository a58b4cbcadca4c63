package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger injects a request-scoped logger into the context and logs a
// summary line per request. Health and metrics probes are not logged.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			reqLogger := logger.With().Str("request_id", reqID).Logger()
			r = r.WithContext(reqLogger.WithContext(r.Context()))

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				return
			}

			evt := reqLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.status).
				Int64("bytes", ww.written).
				Dur("duration", time.Since(start))

			// Provisioning routes carry the job ID as the {id} parameter.
			if jobID := chi.URLParam(r, "id"); jobID != "" {
				evt = evt.Str("job_id", jobID)
			}

			evt.Msg("request")
		})
	}
}
