// Package telemetry wires the OpenTelemetry tracer used around gateway calls
// and presentation handlers.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Version is reported as service.version on every span.
var Version = "0.1.0"

// TracerProvider is the global tracer provider
var TracerProvider *sdktrace.TracerProvider

// Tracer returns the named tracer from the global provider. Before InitTracer
// runs this is the no-op tracer, so packages can trace unconditionally.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// InitTracer initializes the OpenTelemetry tracer. Spans are written to w
// (stdout when nil) in pretty-printed form when pretty is set.
func InitTracer(serviceName string, w io.Writer, pretty bool) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	if pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// Schemaless so the merge never conflicts with the SDK default schema URL
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create a trace provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	// Set the global tracer provider
	otel.SetTracerProvider(tp)

	// Set the global propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	TracerProvider = tp

	return tp, nil
}

// ShutdownTracer shuts down the tracer provider
func ShutdownTracer(ctx context.Context) {
	if TracerProvider != nil {
		// Flush any remaining spans
		if err := TracerProvider.Shutdown(ctx); err != nil {
			slog.Error("error shutting down tracer provider", "error", err)
		}
	}
}
