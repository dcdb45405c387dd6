package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightscan/internal/adapter"
	"github.com/sells-group/flightscan/internal/cache"
	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/store"
)

// --- Adapter Mock ---

type mockAdapter struct {
	mock.Mock
	name string
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Search(ctx context.Context, q model.Query) ([]model.RawRow, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawRow), args.Error(1)
}

// --- Run Recorder Mock ---

type mockRecorder struct {
	mu   sync.Mutex
	runs []*model.ResultSet
	err  error
}

func (m *mockRecorder) SaveRun(_ context.Context, rs *model.ResultSet) (*store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.runs = append(m.runs, rs)
	return &store.Run{ID: "run-1", Fingerprint: rs.Fingerprint}, nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// --- Helpers ---

func testQuery(t *testing.T) model.Query {
	t.Helper()
	day, err := model.ParseDate("2024-06-01")
	require.NoError(t, err)
	return model.Query{Origin: "JFK", Destination: "LHR", DepartDate: day, Passengers: 1, Cabin: model.CabinEconomy}
}

// flightRow builds a JFK-LHR row departing on 2024-06-01 at the given local
// New York clock time with a seven hour block time.
func flightRow(carrier, number, departClock, price string) model.RawRow {
	depart, _ := time.Parse("2006-01-02T15:04-07:00", "2024-06-01T"+departClock+"-04:00")
	return model.RawRow{
		"carrier":       carrier,
		"flight_number": number,
		"origin":        "JFK",
		"destination":   "LHR",
		"depart_time":   depart.Format(time.RFC3339),
		"arrive_time":   depart.Add(7 * time.Hour).In(time.FixedZone("BST", 3600)).Format(time.RFC3339),
		"price":         price,
	}
}

func withFetchedAt(row model.RawRow, ts string) model.RawRow {
	row["fetched_at"] = ts
	return row
}

func staticAdapter(name string, rows ...model.RawRow) adapter.Adapter {
	return adapter.Func{ID: name, Fn: func(context.Context, model.Query) ([]model.RawRow, error) {
		out := make([]model.RawRow, len(rows))
		for i, r := range rows {
			cp := model.RawRow{}
			for k, v := range r {
				cp[k] = v
			}
			out[i] = cp
		}
		return out, nil
	}}
}

func failingAdapter(name string, kind adapter.Kind, calls *atomic.Int32) adapter.Adapter {
	return adapter.Func{ID: name, Fn: func(context.Context, model.Query) ([]model.RawRow, error) {
		if calls != nil {
			calls.Add(1)
		}
		return nil, adapter.NewError(name, kind, errors.New("simulated failure"))
	}}
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(16)
	require.NoError(t, err)
	return c
}

func newTestPipeline(t *testing.T, rec RunRecorder, adapters ...adapter.Adapter) *Pipeline {
	t.Helper()
	return New(Config{DefaultTimeout: 5 * time.Second, CacheTTL: time.Minute}, adapters, nil, nil, newTestCache(t), rec, nil)
}

func warningsWith(rs *model.ResultSet, code string) []model.Warning {
	var out []model.Warning
	for _, w := range rs.Warnings {
		if w.Code == code {
			out = append(out, w)
		}
	}
	return out
}
