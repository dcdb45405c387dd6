package adapter

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/resilience"
)

// Guard wraps an adapter with bounded retries and its own circuit breaker.
// Every attempt passes through the breaker. Timeouts and unavailable sources
// count as failures and are retried; a changed layout is returned at once and
// leaves the failure count alone.
type Guard struct {
	next    Adapter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewGuard builds a Guard. The breaker should be the one registered for
// next.Name() so that state persists across requests, configured with
// IsRetryable as its ShouldTrip policy.
func NewGuard(next Adapter, breaker *resilience.CircuitBreaker, retry resilience.RetryConfig) *Guard {
	retry.ShouldRetry = IsRetryable
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(next.Name())
	}
	return &Guard{next: next, breaker: breaker, retry: retry}
}

// Name returns the wrapped adapter's name.
func (g *Guard) Name() string { return g.next.Name() }

// Search runs the guarded call.
func (g *Guard) Search(ctx context.Context, q model.Query) ([]model.RawRow, error) {
	rows, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) ([]model.RawRow, error) {
		rows, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) ([]model.RawRow, error) {
			rows, err := g.next.Search(ctx, q)
			return rows, Classify(g.next.Name(), err)
		})
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, NewError(g.next.Name(), KindCircuitOpen, err)
		}
		return rows, err
	})
	if err != nil {
		zap.L().Warn("adapter failed",
			zap.String("source", g.next.Name()),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}
	return rows, nil
}

// Guarded wraps each adapter in a Guard with a breaker from breakers.
func Guarded(adapters []Adapter, breakers *resilience.ServiceBreakers, retry resilience.RetryConfig) []Adapter {
	out := make([]Adapter, len(adapters))
	for i, a := range adapters {
		out[i] = NewGuard(a, breakers.Get(a.Name()), retry)
	}
	return out
}
