package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/api/handlers"
	"github.com/BaSui01/browseruse/config"
	"github.com/BaSui01/browseruse/internal/browseragent"
	"github.com/BaSui01/browseruse/internal/metrics"
	"github.com/BaSui01/browseruse/internal/pool"
	"github.com/BaSui01/browseruse/internal/registry"
	"github.com/BaSui01/browseruse/internal/server"
	"github.com/BaSui01/browseruse/internal/task"
	"github.com/BaSui01/browseruse/internal/telemetry"
)

// Server wires the full service: registry, worker pool, agent runner,
// dispatcher, HTTP handlers, and the metrics endpoint.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler  *handlers.HealthHandler
	browserHandler *handlers.BrowserHandler

	metricsCollector *metrics.Collector
	otelProviders    *telemetry.Providers

	store      registry.Store
	workerPool *pool.WorkerPool
	dispatcher *task.Dispatcher

	rateLimiterCancel context.CancelFunc
}

// NewServer creates a server instance from loaded configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// Start brings up all components and both listeners.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("browseruse", prometheus.DefaultRegisterer, s.logger)

	if err := s.initTaskPipeline(); err != nil {
		return fmt.Errorf("failed to init task pipeline: %w", err)
	}

	s.initHandlers()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("registry_backend", s.cfg.Registry.Backend),
	)

	return nil
}

// initTaskPipeline builds the registry, worker pool, agent runner, and
// dispatcher in dependency order.
func (s *Server) initTaskPipeline() error {
	switch s.cfg.Registry.Backend {
	case "redis":
		store, err := registry.NewRedisStore(s.cfg.Registry, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect redis registry: %w", err)
		}
		s.store = store
	default:
		s.store = registry.NewMemoryStore()
	}

	s.workerPool = pool.New(pool.Config{
		MaxWorkers:  s.cfg.Pool.MaxWorkers,
		QueueSize:   s.cfg.Pool.QueueSize,
		IdleTimeout: s.cfg.Pool.IdleTimeout,
		PanicHandler: func(v any) {
			s.logger.Error("task panicked", zap.Any("panic", v))
		},
	})

	if s.cfg.Agent.ConversationDir != "" {
		if err := os.MkdirAll(s.cfg.Agent.ConversationDir, 0o755); err != nil {
			return fmt.Errorf("failed to create conversation dir: %w", err)
		}
	}

	runner := browseragent.NewInvoker(s.cfg.Agent, s.cfg.Browser, s.cfg.LLM, s.logger)
	s.dispatcher = task.New(runner, s.store, s.workerPool, s.metricsCollector,
		s.cfg.Agent.ConversationDir, s.logger)

	return nil
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.browserHandler = handlers.NewBrowserHandler(s.dispatcher, s.cfg.Agent.DefaultModel, s.logger)
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler.Handle)
	mux.HandleFunc("POST /browser/run", s.browserHandler.HandleRun)
	mux.HandleFunc("GET /browser/status/{task_id}", s.browserHandler.HandleStatus)
	mux.HandleFunc("POST /browser/simple", s.browserHandler.HandleSimple)

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		OTelTracing(),
		MetricsMiddleware(s.metricsCollector),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until a shutdown signal, then cleans up.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops the listeners, drains the worker pool, and releases
// the registry and telemetry resources.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	// Let queued tasks finish so their terminal records get written.
	if s.workerPool != nil {
		s.workerPool.Close()
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("registry close error", zap.Error(err))
		}
	}

	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
