package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Mnabil10/fasketfornt-sub000/internal/config"
	"github.com/Mnabil10/fasketfornt-sub000/internal/event"
	handler "github.com/Mnabil10/fasketfornt-sub000/internal/handler/http"
	"github.com/Mnabil10/fasketfornt-sub000/internal/imgproc"
	"github.com/Mnabil10/fasketfornt-sub000/internal/service"
	"github.com/Mnabil10/fasketfornt-sub000/internal/storage"
	"github.com/Mnabil10/fasketfornt-sub000/internal/storage/backend"
	"github.com/Mnabil10/fasketfornt-sub000/internal/storage/memory"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/health"
	pkgkafka "github.com/Mnabil10/fasketfornt-sub000/pkg/kafka"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/middleware"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/tracing"
)

// App wires together all dependencies and runs the media gateway.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp builds the full dependency graph from configuration.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize tracing first so every component picks up the global provider.
	tracingCfg := tracing.DefaultConfig(cfg.ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracingCfg.SampleRate = cfg.Tracing.SampleRate
	tracingCfg.Enabled = cfg.Tracing.Enabled
	tracingShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Kafka producer, only when event publishing is on. A nil producer wires
	// the event layer into its disabled mode.
	var kafkaProducer *pkgkafka.Producer
	if cfg.Kafka.EventsEnabled {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.Kafka.Brokers)
		kafkaProducer = pkgkafka.NewProducer(kafkaCfg, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
	} else {
		logger.Info("event publishing disabled")
	}

	healthHandler := health.NewHandler(cfg.ServiceName)

	// Transport: the platform backend when configured, otherwise the
	// in-memory store for local development.
	var store storage.Store
	if cfg.Backend.BaseURL != "" {
		backendStore := backend.NewStore(backend.Config{
			BaseURL:    cfg.Backend.BaseURL,
			SignPath:   cfg.Backend.SignPath,
			UploadPath: cfg.Backend.UploadPath,
			Token:      cfg.Backend.Token,
			Timeout:    cfg.Backend.Timeout,
		}, logger)
		store = backendStore
		healthHandler.RegisterCritical("backend", backendStore.Ping)
		logger.Info("using platform backend storage", slog.String("base_url", cfg.Backend.BaseURL))
	} else {
		store = memory.New(fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port))
		logger.Warn("BACKEND_BASE_URL not set, using in-memory storage")
	}

	// The broker is advisory: uploads succeed without it, so its check only
	// degrades readiness.
	if kafkaProducer != nil {
		healthHandler.RegisterNonCritical("kafka", kafkaProducer.Ping)
	}

	compressor := imgproc.NewCompressor(imgproc.NewImagingCodec(), logger)
	eventProducer := event.NewProducer(kafkaProducer, logger)
	uploadService := service.NewUploadService(store, compressor, eventProducer, cfg.Budget(), logger)

	routerCfg := handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.HTTP.CORSOrigins,
			ExposedHeaders: []string{"X-Correlation-ID", "X-Upload-ID"},
			Environment:    cfg.Environment,
		},
	}
	if cfg.Environment != "production" {
		routerCfg.PprofCIDRs = cfg.HTTP.PprofCIDRs
	}

	router := handler.NewRouter(uploadService, healthHandler, routerCfg, logger)

	// Browsers push multipart bodies slowly and the proxy tier may spend up
	// to the backend timeout; both must fit inside the server windows.
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 2 * cfg.Backend.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		producer:        kafkaProducer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run serves HTTP until ctx is canceled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown drains the HTTP server, then closes the producer and the
// trace exporter.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down media gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("media gateway shutdown complete")
	return nil
}
