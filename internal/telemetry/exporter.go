package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ExportPolicy tunes retries and circuit breaking around span export.
type ExportPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64

	// FailureThreshold consecutive failed exports open the breaker for
	// ResetTimeout.
	FailureThreshold uint32
	ResetTimeout     time.Duration
}

// DefaultExportPolicy retries for at most ten seconds and opens the
// breaker after five consecutive failed exports.
func DefaultExportPolicy() ExportPolicy {
	return ExportPolicy{
		InitialInterval:  100 * time.Millisecond,
		MaxInterval:      2 * time.Second,
		MaxElapsedTime:   10 * time.Second,
		MaxRetries:       5,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// retryableExporter wraps an exporter with retry logic and circuit breaker
type retryableExporter struct {
	exporter sdktrace.SpanExporter
	policy   ExportPolicy
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

func newRetryableExporter(exporter sdktrace.SpanExporter, policy ExportPolicy) *retryableExporter {
	return &retryableExporter{
		exporter: exporter,
		policy:   policy,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "otlp-export",
			MaxRequests: 1,
			Timeout:     policy.ResetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= policy.FailureThreshold
			},
		}),
	}
}

func (re *retryableExporter) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = re.policy.InitialInterval
	bo.MaxInterval = re.policy.MaxInterval
	bo.MaxElapsedTime = re.policy.MaxElapsedTime
	bo.Multiplier = 1.5
	return backoff.WithContext(backoff.WithMaxRetries(bo, re.policy.MaxRetries), ctx)
}

// ExportSpans retries inside one breaker call, so a whole failed retry
// sequence counts as a single failure.
func (re *retryableExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	_, err := re.breaker.Execute(func() (struct{}, error) {
		attempts := 0
		err := backoff.Retry(func() error {
			attempts++
			if err := ctx.Err(); err != nil {
				return backoff.Permanent(err)
			}
			return re.exporter.ExportSpans(ctx, spans)
		}, re.backOff(ctx))
		if err != nil {
			return struct{}{}, fmt.Errorf("export failed after %d attempts: %w", attempts, err)
		}
		return struct{}{}, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("span export suspended: %w", err)
	}
	return err
}

func (re *retryableExporter) Shutdown(ctx context.Context) error {
	return re.exporter.Shutdown(ctx)
}

// State reports the breaker state, for diagnostics.
func (re *retryableExporter) State() gobreaker.State {
	return re.breaker.State()
}

var _ sdktrace.SpanExporter = (*retryableExporter)(nil)
