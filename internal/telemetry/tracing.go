package telemetry

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider returns a provider that batches finished spans and writes
// them to w as JSON, one object per span. Shutdown flushes pending spans.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("could not create span exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}
