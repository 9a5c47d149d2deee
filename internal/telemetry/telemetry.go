// Package telemetry wires up the engine's structured logger and, when
// requested, an OpenTelemetry SDK exporting traces/metrics to stdout. The
// rest of the engine never imports this package directly -- every other
// package obtains its tracer/meter via otel.Tracer/otel.Meter at init time
// (see internal/ledger, internal/indexer), which quietly no-ops until
// Init installs a real provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options configures Init.
type Options struct {
	ServiceName string
	LogLevel    slog.Level
	LogJSON     bool
	Trace       bool // export spans to stdout
	Metrics     bool // export metrics to stdout
	Writer      io.Writer // defaults to os.Stderr
}

// Shutdown flushes and tears down whatever providers Init installed.
type Shutdown func(context.Context) error

// Init builds the process-wide slog.Logger and, if requested, installs
// OpenTelemetry SDK providers so otel.Tracer/otel.Meter calls throughout the
// engine start emitting real spans and metrics instead of the no-op
// default. Returns a Shutdown to call during graceful exit.
func Init(opts Options) (*slog.Logger, Shutdown, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	if opts.LogJSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.LogLevel})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.LogLevel})
	}
	logger := slog.New(handler)

	var shutdowns []Shutdown

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(opts.ServiceName),
	))
	if err != nil {
		return logger, noopShutdown, fmt.Errorf("telemetry: build resource: %w", err)
	}

	if opts.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return logger, noopShutdown, fmt.Errorf("telemetry: stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if opts.Metrics {
		exp, err := stdoutmetric.New()
		if err != nil {
			return logger, noopShutdown, fmt.Errorf("telemetry: stdout metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return logger, func(ctx context.Context) error {
		for _, s := range shutdowns {
			if err := s(ctx); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func noopShutdown(context.Context) error { return nil }
