// Package server exposes a running scanner over HTTP: its status, a JPEG
// preview of the output buffer and the freeze and reset controls.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/zsiec/codescan/internal/config"
	apperrors "github.com/zsiec/codescan/internal/errors"
	"github.com/zsiec/codescan/internal/health"
	"github.com/zsiec/codescan/internal/logger"
	"github.com/zsiec/codescan/internal/scanner"
)

// Controller is the scanner surface the server drives. *scanner.Scheduler
// implements it.
type Controller interface {
	Status() scanner.Status
	Preview() *image.RGBA
	Err() error
	ErrorText() string
	SetShowStaticImage(frozen bool)
	Reset()
}

// Server is the HTTP host surface.
type Server struct {
	config       *config.ServerConfig
	router       *mux.Router
	httpServer   *http.Server
	logger       *logrus.Logger
	log          logger.Logger
	scanner      Controller
	healthMgr    *health.Manager
	errorHandler *apperrors.ErrorHandler
	preview      *rate.Limiter
}

// New creates a server for ctrl. redisClient may be nil when the sink is
// disabled.
func New(cfg *config.ServerConfig, log *logrus.Logger, ctrl Controller, redisClient *redis.Client) *Server {
	base := logger.WithComponent(log, "server")
	s := &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		log:          base,
		scanner:      ctrl,
		healthMgr:    health.NewManager(base),
		errorHandler: apperrors.NewErrorHandler(log),
		preview:      rate.NewLimiter(rate.Limit(cfg.PreviewRate), cfg.PreviewBurst),
	}

	s.healthMgr.Register(health.NewCameraChecker(ctrl))
	if redisClient != nil {
		s.healthMgr.Register(health.NewRedisChecker(redisClient))
	}

	s.setupRoutes()
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.ListenAddr, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.healthMgr.StartPeriodicChecks(ctx, 30*time.Second)

	s.log.WithField("addr", ln.Addr().String()).Info("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server within the configured timeout.
func (s *Server) Shutdown() error {
	s.log.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(logger.RequestLoggerMiddleware(s.log))
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.corsMiddleware)

	healthHandler := health.NewHandler(s.healthMgr)
	s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods("GET")
	s.router.HandleFunc("/live", healthHandler.HandleLive).Methods("GET")
	s.router.HandleFunc("/version", s.handleVersion).Methods("GET")

	// Preflight requests are answered by corsMiddleware.
	s.router.PathPrefix("/api/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/preview.jpg", s.handlePreview).Methods("GET")
	api.HandleFunc("/freeze", s.handleFreeze(true)).Methods("POST")
	api.HandleFunc("/unfreeze", s.handleFreeze(false)).Methods("POST")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
}

// GetRouter returns the router for testing.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// MetricsServer serves the Prometheus registry on its own port.
type MetricsServer struct {
	cfg    config.MetricsConfig
	log    logger.Logger
	server *http.Server
}

func NewMetricsServer(cfg config.MetricsConfig, log *logrus.Logger) *MetricsServer {
	router := mux.NewRouter()
	router.Handle(cfg.Path, promhttp.Handler()).Methods("GET")

	return &MetricsServer{
		cfg: cfg,
		log: logger.WithComponent(log, "metrics"),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves metrics until ctx is cancelled.
func (m *MetricsServer) Start(ctx context.Context) error {
	m.log.WithFields(map[string]interface{}{
		"port": m.cfg.Port,
		"path": m.cfg.Path,
	}).Info("Starting metrics server")

	errCh := make(chan error, 1)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return m.server.Shutdown(shutdownCtx)
	}
}
