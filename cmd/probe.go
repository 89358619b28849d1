package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"webprobe/internal/config"
	"webprobe/internal/dispatcher"
	"webprobe/internal/input"
	"webprobe/internal/prober"
	"webprobe/internal/telemetry"
	"webprobe/pkg/domain"
	"webprobe/pkg/logger"
	"webprobe/pkg/metrics"
	"webprobe/pkg/serrors"
	"webprobe/pkg/storage"
	"webprobe/pkg/storage/flatfile"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// probeFlags mirror the config keys they override. Only flags set on the
// command line replace config values.
type probeFlags struct {
	workers          int
	output           string
	outputDir        string
	timeout          time.Duration
	strictWWW        bool
	flushOnInterrupt bool
	metricsAddr      string
	traceFile        string
}

func (f probeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("processes") {
		cfg.Probe.Workers = f.workers
	}
	if changed("output") {
		cfg.Output.Name = f.output
	}
	if changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if changed("timeout") {
		cfg.Probe.Timeout = f.timeout
	}
	if changed("strict-www") {
		cfg.Probe.StrictWWWCheck = f.strictWWW
	}
	if changed("flush-on-interrupt") {
		cfg.Output.FlushOnInterrupt = f.flushOnInterrupt
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if changed("trace-file") {
		cfg.Tracing.File = f.traceFile
	}
}

func probeCommand(cfg *config.Config) *cobra.Command {
	var flags probeFlags

	cmd := &cobra.Command{
		Use:   "probe <domain-file>",
		Short: "Probes every domain of the file and saves the live endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logger.WithFields(ctx, zap.String("runID", uuid.NewString()))

			return runProbe(ctx, cfg, args[0], cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&flags.workers, "processes", "p", 8, "Number of concurrent workers")
	fs.StringVarP(&flags.output, "output", "o", flatfile.DefaultName,
		"Output base name (codes_<name>.csv and <name>.txt)")
	fs.StringVar(&flags.outputDir, "output-dir", ".", "Directory the output files are written to")
	fs.DurationVar(&flags.timeout, "timeout", prober.DefaultRequestTimeout, "Timeout of every single request")
	fs.BoolVar(&flags.strictWWW, "strict-www", false,
		"Try https://www. only when the https answer itself redirects")
	fs.BoolVar(&flags.flushOnInterrupt, "flush-on-interrupt", false, "Save partial results when interrupted")
	fs.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and pprof on this address")
	fs.StringVar(&flags.traceFile, "trace-file", "", "Append a JSON span per probe request to this file")

	return cmd
}

// runProbe wires the real prober, the optional telemetry server and the flat
// file writer, then probes the domains listed in inFile.
func runProbe(ctx context.Context, cfg *config.Config, inFile string, out io.Writer) error {
	domains, err := input.ReadDomains(inFile)
	if err != nil {
		return err
	}

	opts := prober.NewOptions(cfg)
	if cfg.Metrics.Addr != "" {
		probeMetrics, shutdown, err := setupTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown()
		opts.Metrics = probeMetrics
	}
	if cfg.Tracing.File != "" {
		tp, shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown()
		opts.TracerProvider = tp
	}

	writer := flatfile.New(flatfile.Options{Dir: cfg.Output.Dir, Name: cfg.Output.Name})

	return execute(ctx, cfg, domains, prober.New(opts), writer, out)
}

func setupTelemetry(ctx context.Context, cfg *config.Config) (*metrics.Probe, func(), error) {
	srv, err := telemetry.New(telemetry.NewOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("could not create telemetry server: %w", err)
	}

	probeMetrics, err := metrics.NewProbe(srv.MeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("could not create probe metrics: %w", err)
	}

	srv.Start(ctx)

	return probeMetrics, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.GracefulShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "could not stop telemetry server", zap.Error(err))
		}
	}, nil
}

// setupTracing opens the trace file for appending and returns a provider
// exporting into it. The returned func flushes pending spans and closes the file.
func setupTracing(ctx context.Context, cfg *config.Config) (trace.TracerProvider, func(), error) {
	f, err := os.OpenFile(cfg.Tracing.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, serrors.Wrap(serrors.ErrInvalidInput, err, "could not open trace file")
	}

	tp, err := telemetry.NewTracerProvider(f)
	if err != nil {
		_ = f.Close()

		return nil, nil, fmt.Errorf("could not create tracer provider: %w", err)
	}

	return tp, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.GracefulShutdownTimeout)
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "could not flush spans", zap.Error(err))
		}
		if err := f.Close(); err != nil {
			logger.Warn(ctx, "could not close trace file", zap.Error(err))
		}
	}, nil
}

// execute probes domains and hands the results to w. An interrupted run
// saves nothing unless cfg.Output.FlushOnInterrupt is set. Failing to save is
// logged but does not fail the command.
func execute(ctx context.Context,
	cfg *config.Config,
	domains []domain.Domain,
	p prober.Prober,
	w storage.ResultWriter,
	out io.Writer) error {
	logger.Info(ctx, "probing domains",
		zap.Int("domains", len(domains)),
		zap.Int("workers", dispatcher.WorkerCount(cfg.Probe.Workers, len(domains))))

	rs, err := dispatcher.New(p, dispatcher.NewOptions(cfg)).Run(ctx, domains)
	if err != nil {
		if !errors.Is(err, serrors.ErrInterrupted) {
			return fmt.Errorf("could not probe domains: %w", err)
		}
		if !cfg.Output.FlushOnInterrupt {
			logger.Warn(ctx, "interrupted, discarding results", zap.Int("completed", len(rs)))

			return nil
		}
		logger.Warn(ctx, "interrupted, saving partial results", zap.Int("completed", len(rs)))
	}

	// ctx may already be cancelled here; saving must not depend on it
	writeCtx := context.WithoutCancel(ctx)

	logger.Info(writeCtx, "saving results", zap.Int("found", len(rs.Found())), zap.Int("probed", len(rs)))
	if err := w.Write(writeCtx, rs); err != nil {
		logger.Error(writeCtx, "could not save results", zap.Error(err))

		return nil
	}

	color.New(color.FgHiGreen).Fprintf(out, "[i] Results saved to: %s\n", strings.Join(w.Paths(), " and "))

	return nil
}
