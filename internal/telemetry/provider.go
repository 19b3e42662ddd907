// Package telemetry configures OpenTelemetry tracing for the console.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "clinicadm"

// Config selects the trace exporter.
type Config struct {
	// Endpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Disabled    bool   `yaml:"disabled" env:"OTEL_DISABLED"`
}

// Setup initialises tracing and registers the global provider.
//
// Tracing is opt-in: with no endpoint, or when disabled, Setup returns a no-op
// shutdown function and leaves the global provider untouched. Spans started
// by the API client are then dropped by the default no-op tracer.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.Disabled || cfg.Endpoint == "" {
		return noop, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
