// Package telemetry sets up structured logging and the OpenTelemetry SDK.
//
// Call SetupTracer once at the top of main(), defer the returned shutdown
// function, and every span created anywhere in the process will be exported.
//
//	shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{...})
//	if err != nil { ... }
//	defer shutdown(context.Background())
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ShutdownFunc must be called before the process exits to flush any
// buffered spans and close the exporter connection cleanly.
type ShutdownFunc func(ctx context.Context) error

type TracerConfig struct {
	ServiceName string
	// Endpoint is the collector's host:port; an http:// or https:// prefix
	// is stripped.
	Endpoint string
	// Enabled false installs only the propagators. Spans are still created
	// by the global no-op provider so log records carry no trace ids.
	Enabled bool
}

// SetupTracer initialises the global TracerProvider and TextMapPropagator.
func SetupTracer(ctx context.Context, cfg TracerConfig) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, // W3C traceparent / tracestate headers
		propagation.Baggage{},      // W3C baggage header
	))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	endpoint := stripScheme(cfg.Endpoint)

	// ── 1. Create the OTLP gRPC exporter ────────────────────────────────────
	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to dial OTel Collector at %s: %w", endpoint, err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("telemetry: failed to create OTLP trace exporter: %w", err)
	}

	// ── 2. Build the resource ────────────────────────────────────────────────
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("telemetry: failed to build resource: %w", err)
	}

	// ── 3. Create the TracerProvider with a batching span processor ──────────
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// ── 4. Register as the global provider ───────────────────────────────────
	// otelhttp and the manual spans in order and checkout read it from here.
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: error shutting down TracerProvider: %w", err)
		}
		return conn.Close()
	}

	return shutdown, nil
}

// stripScheme removes "http://" or "https://" prefixes so the raw host:port
// string can be used directly with grpc.NewClient.
func stripScheme(endpoint string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if rest, ok := strings.CutPrefix(endpoint, prefix); ok && rest != "" {
			return rest
		}
	}
	return endpoint
}
