// Package server exposes a View over HTTP: the bundle and viewport as JSON,
// gesture endpoints, the rendered chart and prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/fetch"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Loader fetches the raw history and prediction payloads for a symbol.
type Loader interface {
	Both(ctx context.Context, symbol string) (fetch.Payloads, error)
}

type Option func(*Server)

// WithLoader enables POST /api/reload/:symbol.
func WithLoader(l Loader) Option {
	return func(s *Server) {
		s.loader = l
	}
}

// WithGatherer serves metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

func WithMetricsPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.metricsPath = path
		}
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// Server wraps an echo instance serving one View.
type Server struct {
	echo   *echo.Echo
	view   *forecastview.View
	loader Loader
	logger zerolog.Logger

	gatherer     prometheus.Gatherer
	metricsPath  string
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func New(view *forecastview.View, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		view:         view,
		logger:       logger,
		gatherer:     prometheus.DefaultGatherer,
		metricsPath:  "/metrics",
		readTimeout:  10 * time.Second,
		writeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = s.errorHandler
	e.Server.ReadTimeout = s.readTimeout
	e.Server.WriteTimeout = s.writeTimeout

	e.Use(recoverer(logger))
	e.Use(requestLogger(logger))

	s.echo = e
	s.registerRoutes(e)
	return s
}

func (s *Server) registerRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/bundle", s.getBundle)
	api.GET("/summary", s.getSummary)
	api.GET("/viewport", s.getViewport)
	api.POST("/viewport/pan", s.pan)
	api.POST("/viewport/zoom", s.zoom)
	api.POST("/viewport/reset", s.reset)
	api.POST("/reload/:symbol", s.reload)

	e.GET("/chart", s.chart)
	e.GET("/healthz", s.health)
	e.GET(s.metricsPath, echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until the server stops. A graceful
// Shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s, %w", addr, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server, %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}
