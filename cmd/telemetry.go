package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// startTracing returns a tracer provider exporting spans as JSON to path and
// the function that flushes and closes it. An empty path disables tracing.
func startTracing(path string) (trace.TracerProvider, func(context.Context) error, error) {
	if path == "" {
		return nil, func(context.Context) error { return nil }, nil
	}

	file, err := os.Create(path)
	if err != nil {
		slog.Error("Failed to create trace file", "path", path, "error", err)
		return nil, nil, fmt.Errorf("create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)

	shutdown := func(ctx context.Context) error {
		return errors.Join(provider.Shutdown(ctx), file.Close())
	}

	return provider, shutdown, nil
}

// writeMetrics writes the gathered metrics to path in the text exposition
// format. An empty path is a no-op.
func writeMetrics(path string, gatherer prometheus.Gatherer) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		slog.Error("Failed to write metrics", "path", path, "error", err)
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
