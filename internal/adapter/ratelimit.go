package adapter

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/flightscan/internal/model"
)

// RateLimited spaces out requests against one source. Each Search consumes
// one token before the wrapped adapter runs. It belongs outside the source's
// Guard: a token wait that misses the deadline never reached the source and
// must not count against its breaker.
type RateLimited struct {
	next    Adapter
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute sessions with the given burst. A
// non-positive perMinute disables limiting.
func NewRateLimited(next Adapter, perMinute float64, burst int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Duration(float64(time.Minute) / perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Name returns the wrapped adapter's name.
func (r *RateLimited) Name() string { return r.next.Name() }

// Search waits for a token, then delegates. A wait cut short by the caller's
// deadline is a timeout and the wrapped adapter is not called.
func (r *RateLimited) Search(ctx context.Context, q model.Query) ([]model.RawRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NewError(r.next.Name(), KindTimeout, eris.Wrap(err, "rate limit: wait"))
	}
	return r.next.Search(ctx, q)
}

// Throttled wraps each adapter in a RateLimited with its own limiter.
func Throttled(adapters []Adapter, perMinute float64, burst int) []Adapter {
	out := make([]Adapter, len(adapters))
	for i, a := range adapters {
		out[i] = NewRateLimited(a, perMinute, burst)
	}
	return out
}
