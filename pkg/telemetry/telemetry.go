// Package telemetry configures the CLI's own OpenTelemetry tracing.
// Disabled by default; enabled per invocation with --otel or the standard
// OTEL_* environment variables.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Mode selects how self-trace spans leave the process.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeStdout Mode = "stdout"
	ModeGRPC   Mode = "grpc"
	ModeHTTP   Mode = "http"
)

const shutdownTimeout = 5 * time.Second

// Configure installs a global tracer provider for the given mode and returns
// a shutdown function that flushes pending spans. ModeOff and
// OTEL_SDK_DISABLED=true install nothing.
func Configure(ctx context.Context, service, version string, mode Mode) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if mode == "" || mode == ModeOff || os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return noop, nil
	}

	exporter, err := newExporter(ctx, mode)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

func newExporter(ctx context.Context, mode Mode) (sdktrace.SpanExporter, error) {
	switch mode {
	case ModeStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	case ModeGRPC:
		return otlptracegrpc.New(ctx)
	case ModeHTTP:
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported telemetry mode %q, supported: off, stdout, grpc, http", mode)
	}
}
