package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/shigemiyagi/marriage-astrology-app/internal/interfaces/http/handlers"
	"github.com/shigemiyagi/marriage-astrology-app/internal/metrics"
)

// Server represents the forecast API server.
type Server struct {
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *metrics.MetricsRegistry
	limiter  *rate.Limiter
	config   ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	RateLimit      float64 // scan requests per second
	Burst          int
	CORSOrigins    []string
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "127.0.0.1:8080", // Local-only by default
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   3 * time.Minute,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 2 * time.Minute,
		RateLimit:      5,
		Burst:          10,
	}
}

// NewServer creates a new HTTP server instance. m may be nil, in which case
// /metrics is not served.
func NewServer(config ServerConfig, h *handlers.Handlers, m *metrics.MetricsRegistry) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		handlers: h,
		metrics:  m,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
		config:   config,
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	if len(config.CORSOrigins) > 0 {
		handler = ghandlers.CORS(
			ghandlers.AllowedOrigins(config.CORSOrigins),
			ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			ghandlers.AllowedHeaders([]string{"Content-Type"}),
		)(handler)
	}
	s.handler = ghandlers.RecoveryHandler(
		ghandlers.RecoveryLogger(recoveryLogger{}),
		ghandlers.PrintRecoveryStack(false),
	)(handler)

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)

	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)
	api.HandleFunc("/events", s.handlers.Events).Methods(http.MethodGet)
	api.HandleFunc("/regions", s.handlers.Regions).Methods(http.MethodGet)

	scans := api.NewRoute().Subrouter()
	scans.Use(s.rateLimitMiddleware)
	scans.HandleFunc("/forecast", s.handlers.Forecast).Methods(http.MethodPost)
	scans.HandleFunc("/couple", s.handlers.Couple).Methods(http.MethodPost)

	s.router.NotFoundHandler = s.withRequestID(http.HandlerFunc(s.handlers.NotFound))
	s.router.MethodNotAllowedHandler = s.withRequestID(http.HandlerFunc(s.handlers.MethodNotAllowed))
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info().
		Str("addr", s.config.Addr).
		Float64("rate_limit", s.config.RateLimit).
		Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Addr
}
