// Package tracing wires the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup installs a global tracer provider for the given mode ("off",
// "stdout", or "otlp") and returns a shutdown func to flush spans on exit.
// In off mode the default no-op provider stays in place.
func Setup(ctx context.Context, mode, endpoint string) (func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch mode {
	case "off", "":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown tracing mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	// Schemaless so the merge cannot conflict with the SDK's own
	// semconv schema version.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName("todo-api"),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
