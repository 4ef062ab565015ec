package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/medrex/clinic-scheduling/pkg/config"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/monitoring"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// RouteRegistrar mounts a component's routes under /api/v1
type RouteRegistrar interface {
	RegisterRoutes(api *mux.Router, guard interfaces.RouteGuard)
}

// Service is the HTTP front of the clinic API
type Service struct {
	config  *config.Config
	router  *mux.Router
	server  *http.Server
	logger  *logger.Logger
	guard   *Guard
	limiter *RateLimiter
	clients *ClientIPResolver
	metrics *monitoring.MetricsCollector
	health  *monitoring.HealthManager
	monitor *monitoring.MonitoringMiddleware
}

// NewService builds the router, applies middleware and mounts every registrar
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	tokens interfaces.TokenResolver,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingManager,
	health *monitoring.HealthManager,
	registrars ...RouteRegistrar,
) *Service {
	s := &Service{
		config:  cfg,
		router:  mux.NewRouter(),
		logger:  log,
		guard:   NewGuard(tokens, log),
		metrics: metrics,
		health:  health,
		monitor: monitoring.NewMonitoringMiddleware(metrics, tracing, log, routeTemplate),
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMin > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
	}

	clients, err := NewClientIPResolver(cfg.RateLimit.TrustedProxies)
	if err != nil {
		log.WithError(err).Warn("Ignoring trusted proxies, keying clients by remote address")
		clients = &ClientIPResolver{}
	}
	s.clients = clients

	s.setupMiddleware()
	s.setupRoutes(registrars)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Service) setupMiddleware() {
	s.router.Use(s.monitor.Handler)
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(CORSMiddleware)
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.clients, s.logger))
	}
}

func (s *Service) setupRoutes(registrars []RouteRegistrar) {
	healthPath := s.config.Monitoring.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	metricsPath := s.config.Monitoring.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	s.router.HandleFunc(healthPath, s.health.HTTPHandler()).Methods(http.MethodGet)
	s.router.Handle(metricsPath, s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api, s.guard)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteStatusError(w, http.StatusNotFound, types.ErrCodeNotFound, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteStatusError(w, http.StatusMethodNotAllowed, types.ErrCodeInvalidInput, "method not allowed")
	})
}

// Router returns the configured router
func (s *Service) Router() http.Handler {
	return s.router
}

// Start serves HTTP until the server is stopped
func (s *Service) Start() error {
	if s.limiter != nil {
		interval := time.Duration(s.config.RateLimit.CleanupInterval) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.server.RegisterOnShutdown(cancel)
		s.limiter.StartCleanup(ctx, interval)
	}

	s.logger.WithField("addr", s.server.Addr).Info("Starting clinic API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping clinic API")
	return s.server.Shutdown(ctx)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
