package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline stage names, shared with the stage duration metric.
const (
	StageReadTraffic = "read_traffic"
	StageLoadSpec    = "load_spec"
	StageObserve     = "observe"
	StageDetect      = "detect"
	StageReport      = "report"
	StageHistory     = "history"
	StageRender      = "render"
)

// StartCommandSpan creates a span for a CLI command execution.
//
// Usage:
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "check")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("commands")
	ctx, span := tracer.Start(ctx, "command."+cmdName)

	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)

	return ctx, span
}

// StartStageSpan creates a span for one stage of the drift pipeline.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "stage."+stage)

	span.SetAttributes(
		attribute.String("stage", stage),
		attribute.String("component", "pipeline"),
	)

	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.Bool("error", true),
	)
}

// RecordDuration records the duration of an operation as a span attribute.
func RecordDuration(span trace.Span, name string, duration time.Duration) {
	span.SetAttributes(
		attribute.Int64(name+"_ms", duration.Milliseconds()),
	)
}

// RecordCounts records counters such as samples or findings as span
// attributes.
func RecordCounts(span trace.Span, counts map[string]int64) {
	for key, value := range counts {
		span.SetAttributes(
			attribute.Int64(key, value),
		)
	}
}

// Stage runs fn inside a stage span and reports how long it took through
// observe, which may be nil.
//
// Usage:
//
//	samples, err := telemetry.Stage(ctx, telemetry.StageReadTraffic, m.ObserveStage,
//	    func(ctx context.Context) ([]traffic.Sample, error) {
//	        return traffic.ReadFile(path)
//	    })
func Stage[T any](ctx context.Context, stage string, observe func(string, time.Duration), fn func(context.Context) (T, error)) (T, error) {
	ctx, span := StartStageSpan(ctx, stage)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	RecordDuration(span, "duration", elapsed)
	if observe != nil {
		observe(stage, elapsed)
	}

	if err != nil {
		RecordError(span, err)
		var zero T
		return zero, err
	}

	RecordSuccess(span)
	return result, nil
}
