package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mnabil10/fasketfornt-sub000/internal/service"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/health"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/middleware"
)

// RouterConfig carries the environment-dependent knobs of the router.
type RouterConfig struct {
	CORS middleware.CORSConfig

	// PprofCIDRs enables the pprof endpoints for the listed networks.
	// Empty disables pprof entirely.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all media gateway routes registered.
func NewRouter(
	uploadService *service.UploadService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. RequestLogger must come after RequestLogging and
	// Tracing so the context logger picks up correlation and trace IDs.
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("media-gateway"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("media-gateway"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	// Upload API endpoints
	uploadHandler := NewUploadHandler(uploadService, logger)

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Post("/", uploadHandler.Upload)
	})

	return r
}
