// Package server exposes driver health, metrics and telemetry over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/armctl/internal/arm"
	"github.com/danmuck/armctl/internal/driver"
	"github.com/danmuck/armctl/internal/metrics"
	"github.com/danmuck/armctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// Source is the driver surface the server reads. *driver.Driver satisfies it.
type Source interface {
	SessionID() uuid.UUID
	ReadState() (*arm.State, error)
	Metrics() *metrics.Metrics
	MetricsSnapshot() metrics.Snapshot
	HealthCheck() driver.Health
}

var _ Source = (*driver.Driver)(nil)

type Options struct {
	Addr        string
	CORSOrigins []string
	Version     string
}

type Server struct {
	src      Source
	opts     Options
	log      zerolog.Logger
	router   *gin.Engine
	registry *prometheus.Registry
	started  time.Time
}

func New(src Source, opts Options, logger zerolog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		src:      src,
		opts:     opts,
		log:      logger.With().Str("component", "http").Logger(),
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}
	s.registry.MustRegister(
		metrics.NewCollector(src.Metrics(), prometheus.Labels{"session": src.SessionID().String()}),
		collectors.NewGoCollector(),
	)
	httpMetrics := observability.NewHTTPMetrics(s.registry)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(s.log))
	r.Use(observability.RequestMetrics(httpMetrics))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.router = r
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry is the Prometheus registry behind /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", s.opts.Addr).Msg("http listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	s.log.Info().Msg("http stopped")
	return err
}
