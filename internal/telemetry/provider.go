package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// installed is the process-wide tracer provider and its shutdown hook.
var installed struct {
	sync.RWMutex
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

func install(tp trace.TracerProvider, shutdown func(context.Context) error) {
	installed.Lock()
	defer installed.Unlock()
	installed.provider = tp
	installed.shutdown = shutdown
	if tp != nil {
		otel.SetTracerProvider(tp)
	}
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
}

// newSpanExporter builds the OTLP/HTTP exporter behind the retrying,
// circuit-broken wrapper. The OTLP client's own retry loop is disabled.
func newSpanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return newRetryableExporter(exporter, DefaultExportPolicy()), nil
}

// InitProvider installs the tracer provider described by cfg and returns
// its shutdown function.
func InitProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		shutdown := func(context.Context) error { return nil }
		install(noop.NewTracerProvider(), shutdown)
		return shutdown, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	}
	if cfg.Endpoint != "" {
		exporter, err := newSpanExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// One check run produces a few dozen spans at most.
		opts = append(opts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(2*time.Second),
			sdktrace.WithMaxExportBatchSize(256),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	install(tp, tp.Shutdown)
	return tp.Shutdown, nil
}

// Shutdown flushes and stops the installed provider.
func Shutdown(ctx context.Context) error {
	installed.RLock()
	shutdown := installed.shutdown
	installed.RUnlock()

	if shutdown == nil {
		return nil
	}
	return shutdown(ctx)
}

// ForceFlush exports pending spans without stopping the provider.
func ForceFlush(ctx context.Context) error {
	if tp, ok := GetTracerProvider().(*sdktrace.TracerProvider); ok {
		return tp.ForceFlush(ctx)
	}
	return nil
}

// GetTracerProvider returns the installed provider, or a noop provider
// before InitProvider has run.
func GetTracerProvider() trace.TracerProvider {
	installed.RLock()
	defer installed.RUnlock()

	if installed.provider != nil {
		return installed.provider
	}
	return noop.NewTracerProvider()
}
