// Package tracing wraps the OpenTelemetry SDK tracer vaultfs's engines use
// to annotate a request's spans with trace/span IDs for log correlation.
// There is no OTLP exporter wired here: sampled spans are recorded by the
// SDK's TracerProvider but never shipped to a remote collector, so adding
// tracing needs no gRPC dependency.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	tracer     trace.Tracer
	tracerOnce sync.Once
	enabled    bool
)

// Config configures the in-process tracer.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SampleRate     float64
}

// Init sets up the global TracerProvider from cfg. Returns a shutdown
// function that flushes and releases the provider's resources.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		enabled = false
		tracer = noop.NewTracerProvider().Tracer("vaultfs")
		return func(context.Context) error { return nil }, nil
	}

	enabled = true

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, err
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(cfg.ServiceName)

	return provider.Shutdown, nil
}

// Tracer returns the global tracer, defaulting to a no-op tracer if Init was
// never called.
func Tracer() trace.Tracer {
	tracerOnce.Do(func() {
		if tracer == nil {
			tracer = noop.NewTracerProvider().Tracer("vaultfs")
		}
	})
	return tracer
}

// IsEnabled reports whether a real (non-no-op) tracer is installed.
func IsEnabled() bool {
	return enabled
}

// StartSpan starts a new span named name, returning the context carrying it.
// The caller must call span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records err on the span in ctx and marks it failed. A nil err
// is a no-op.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the hex-encoded trace ID of the span in ctx, or "" if none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
