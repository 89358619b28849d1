// Package metrics defines the OpenTelemetry instruments recorded while probing.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30} //nolint: gochecknoglobals

// MeterName is the instrumentation scope of every instrument in this package.
const MeterName = "webprobe"

// Probe groups the instruments recorded by the prober.
type Probe struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	outcomes metric.Int64Counter
}

// NewProbe creates the probe instruments on a meter from mp.
func NewProbe(mp metric.MeterProvider) (*Probe, error) {
	meter := mp.Meter(MeterName)

	requests, err := meter.Int64Counter("webprobe.probe.requests",
		metric.WithDescription("HTTP requests issued while probing, by variant and status"))
	if err != nil {
		return nil, fmt.Errorf("could not create requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("webprobe.probe.request.duration",
		metric.WithDescription("Duration of probe HTTP requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	outcomes, err := meter.Int64Counter("webprobe.probe.results",
		metric.WithDescription("Completed probes, by outcome and winning variant"))
	if err != nil {
		return nil, fmt.Errorf("could not create results counter: %w", err)
	}

	return &Probe{requests: requests, duration: duration, outcomes: outcomes}, nil
}

// RecordRequest records one HTTP request. status is ignored when failed is set.
// A nil receiver records nothing.
func (p *Probe) RecordRequest(ctx context.Context, variant string, status int, failed bool, took time.Duration) {
	if p == nil {
		return
	}

	statusLabel := "error"
	if !failed {
		statusLabel = strconv.Itoa(status)
	}
	attrs := metric.WithAttributes(
		attribute.String("variant", variant),
		attribute.String("status", statusLabel),
	)

	p.requests.Add(ctx, 1, attrs)
	p.duration.Record(ctx, took.Seconds(), attrs)
}

// RecordOutcome records a finished probe. variant is empty for absent domains.
func (p *Probe) RecordOutcome(ctx context.Context, found bool, variant string) {
	if p == nil {
		return
	}

	outcome := "absent"
	if found {
		outcome = "found"
	}
	p.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("variant", variant),
	))
}
