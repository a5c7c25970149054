// router.go - HTTP surface for health and metrics.
package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthResponse wraps SystemHealth with a coarse status string.
type HealthResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Data    *SystemHealth `json:"data,omitempty"`
}

func newHealthResponse(h *SystemHealth) HealthResponse {
	switch h.OverallStatus {
	case Unhealthy:
		return HealthResponse{Status: "error", Message: "node is unhealthy", Data: h}
	case Degraded:
		return HealthResponse{Status: "warning", Message: "node is degraded", Data: h}
	}
	return HealthResponse{Status: "success", Message: "node is healthy", Data: h}
}

// NewRouter serves GET /healthz and GET /metrics.
func NewRouter(health *Health, metrics *Metrics, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h := health.Check()
		code := http.StatusOK
		if h.OverallStatus == Unhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, newHealthResponse(h))
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Summary())
	})
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
