// Package telemetry exposes the prober's metrics over HTTP while a run is in
// progress. It serves Prometheus metrics and pprof profiles on one listener.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"
	"webprobe/internal/config"
	"webprobe/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// Options configure the telemetry server.
type Options struct {
	// Addr is the TCP address to listen on, e.g. ":9090".
	Addr string
	// MetricsPath is the path Prometheus metrics are served at.
	MetricsPath string
}

// NewOptions builds Options from the application config.
func NewOptions(cfg *config.Config) Options {
	return Options{Addr: cfg.Metrics.Addr, MetricsPath: cfg.Metrics.Path}
}

// Server owns the metrics pipeline (OpenTelemetry meter provider exporting
// into a private Prometheus registry) and the HTTP server exposing it.
type Server struct {
	server        *http.Server
	meterProvider *sdkmetric.MeterProvider
}

// New wires the meter provider, the registry and the routes. It does not
// start listening; see Start.
func New(opts Options) (*Server, error) {
	path := opts.MetricsPath
	if path == "" {
		path = "/metrics"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	registerPprof(mux)

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           withAccessLog(mux),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		meterProvider: mp,
	}, nil
}

// MeterProvider returns the provider whose instruments are served.
func (s *Server) MeterProvider() metric.MeterProvider { return s.meterProvider }

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start listens in the background. Listen errors are logged, not returned, so
// a busy port never stops a probe run.
func (s *Server) Start(ctx context.Context) {
	go func() {
		logger.Info(ctx, "starting telemetry server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "could not start telemetry server", zap.Error(err))
		}
	}()
}

// Shutdown stops the listener and flushes the meter provider.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "stopping telemetry server...")

	return errors.Join(
		s.server.Shutdown(ctx),
		s.meterProvider.Shutdown(ctx),
	)
}

// registerPprof mounts the net/http/pprof handlers under /debug/pprof/.
// Index also serves the named profiles such as /debug/pprof/heap.
func registerPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withAccessLog tags each request with an ID and logs it once served.
func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logger.WithFields(r.Context(), zap.String("requestID", requestID))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Debug(ctx, "telemetry request",
			zap.Int("status_code", rec.status),
			zap.Float64("latency", time.Since(start).Seconds()),
			zap.String("url", r.URL.String()),
			zap.String("method", r.Method),
		)
	})
}
