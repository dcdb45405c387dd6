// Package adapter turns a flight query into raw, loosely structured rows by
// rendering a single source's results page and extracting its rows.
package adapter

import (
	"context"

	"github.com/sells-group/flightscan/internal/model"
)

// Adapter fetches raw rows for one query from one source. The caller's
// deadline arrives on ctx; adapters hold no state shared with other requests
// beyond what their decorators guard.
type Adapter interface {
	Name() string
	Search(ctx context.Context, q model.Query) ([]model.RawRow, error)
}

// Func adapts a plain function into an Adapter.
type Func struct {
	ID string
	Fn func(ctx context.Context, q model.Query) ([]model.RawRow, error)
}

// Name returns the source identifier.
func (f Func) Name() string { return f.ID }

// Search calls the wrapped function.
func (f Func) Search(ctx context.Context, q model.Query) ([]model.RawRow, error) {
	return f.Fn(ctx, q)
}
