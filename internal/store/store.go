// Package store persists search run history.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/model"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = eris.New("store: run not found")

// Run is one recorded pipeline result.
type Run struct {
	ID          string           `json:"id"`
	Fingerprint string           `json:"fingerprint"`
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	DepartDate  string           `json:"depart_date"`
	Flights     int              `json:"flights"`
	Warnings    int              `json:"warnings"`
	Result      *model.ResultSet `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	SaveRun(ctx context.Context, rs *model.ResultSet) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	// ListRuns returns runs newest first, without their result sets.
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	DeleteRunsBefore(ctx context.Context, before time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func newRun(id string, rs *model.ResultSet, now time.Time) *Run {
	return &Run{
		ID:          id,
		Fingerprint: rs.Fingerprint,
		Origin:      rs.Query.Origin,
		Destination: rs.Query.Destination,
		DepartDate:  rs.Query.DepartDate.String(),
		Flights:     len(rs.Flights),
		Warnings:    len(rs.Warnings),
		Result:      rs,
		CreatedAt:   now,
	}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
