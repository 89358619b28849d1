// Package dispatcher applies a Prober to a list of domains with a fixed number
// of concurrent workers and gathers the results.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"webprobe/internal/config"
	"webprobe/internal/prober"
	"webprobe/pkg/domain"
	"webprobe/pkg/logger"
	"webprobe/pkg/serrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configure a Dispatcher.
type Options struct {
	// Workers is the requested number of concurrent workers. It is clamped by
	// WorkerCount for every run.
	Workers int
}

// NewOptions builds Options from the application config.
func NewOptions(cfg *config.Config) Options {
	return Options{Workers: cfg.Probe.Workers}
}

// Dispatcher runs probes on a bounded worker pool.
type Dispatcher struct {
	prober  prober.Prober
	options Options
}

// New creates a Dispatcher probing with p.
func New(p prober.Prober, opts Options) *Dispatcher {
	return &Dispatcher{prober: p, options: opts}
}

// WorkerCount returns the number of workers used for n domains when requested
// workers were asked for: |requested| capped at n, and never less than one.
func WorkerCount(requested, n int) int {
	if requested < 0 {
		requested = -requested
	}

	return max(min(requested, n), 1)
}

// Run probes every domain exactly once and returns the results in completion
// order.
//
// Cancelling ctx stops workers from taking new domains and aborts requests in
// flight. Found results are kept even when the cancellation arrives while
// they are handed over; Absent results seen after it are dropped. What was
// kept is returned together with an error of kind serrors.ErrInterrupted.
func (d *Dispatcher) Run(ctx context.Context, domains []domain.Domain) (domain.ResultSet, error) {
	if len(domains) == 0 {
		return domain.ResultSet{}, nil
	}

	workers := WorkerCount(d.options.Workers, len(domains))
	logger.Debug(ctx, "starting workers", zap.Int("workers", workers), zap.Int("domains", len(domains)))

	queue := make(chan domain.Domain, len(domains))
	for _, dm := range domains {
		queue <- dm
	}
	close(queue)

	results := make(chan domain.Result, len(domains))

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			d.work(logger.WithFields(ctx, zap.Int("worker", i)), queue, results)

			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	set := make(domain.ResultSet, 0, len(domains))
	for r := range results {
		set = append(set, r)
	}

	if err := ctx.Err(); err != nil {
		return set, serrors.Wrap(serrors.ErrInterrupted, err,
			"probing interrupted after %d of %d domains", len(set), len(domains))
	}

	return set, nil
}

// work pulls domains off queue until it is drained or ctx is done.
func (d *Dispatcher) work(ctx context.Context, queue <-chan domain.Domain, results chan<- domain.Result) {
	for {
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case dm, ok := <-queue:
			if !ok {
				return
			}

			res := d.probe(ctx, dm)
			if ctx.Err() != nil && !res.IsFound() {
				// an Absent under cancellation may only mean the requests were aborted
				return
			}
			results <- domain.Result{Domain: dm, Probe: res}
		}
	}
}

// probe runs the prober on one domain, turning a panic into an Absent result
// so that a single bad domain cannot take the pool down.
func (d *Dispatcher) probe(ctx context.Context, dm domain.Domain) (res domain.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "prober panic",
				zap.String("correlationID", uuid.NewString()),
				zap.String("domain", dm.String()),
				zap.String("panic", fmt.Sprintf("%v", r)),
				zap.ByteString("stack", debug.Stack()))

			res = domain.Absent()
		}
	}()

	return d.prober.Probe(ctx, dm)
}
