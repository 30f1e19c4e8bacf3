package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tenantguard/internal/platform/metrics"
	"tenantguard/internal/platform/middleware"
)

// NewRouter wires the public endpoints. Protected routes run the full
// middleware chain; health and metrics stay outside it.
func NewRouter(h *Handler, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	protected := chi.NewRouter()
	protected.Use(middleware.Recovery(logger))
	protected.Use(middleware.RequestID)
	protected.Use(middleware.Logger(logger))
	protected.Use(middleware.Timeout(30 * time.Second))
	protected.Use(middleware.ContentTypeJSON)
	protected.Use(middleware.Latency(m))
	protected.Use(middleware.ClientMetadata)
	protected.Use(middleware.RequireBearer(logger))
	h.Register(protected)

	r.Mount("/", protected)
	return r
}
