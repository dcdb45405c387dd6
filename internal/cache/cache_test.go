package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightscan/internal/model"
)

func newTestCache(t *testing.T, capacity int) (*Cache, *time.Time) {
	t.Helper()
	c, err := New(capacity)
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func sampleSet(fp string) *model.ResultSet {
	return &model.ResultSet{
		Fingerprint: fp,
		Flights: []model.Flight{{
			Carrier: "BA",
			Price:   model.Price{Amount: decimal.NewFromInt(612), Currency: "USD"},
			Stops:   []string{"DUB"},
		}},
	}
}

func TestCache_PutGet(t *testing.T) {
	c, now := newTestCache(t, 4)
	c.Put("fp", sampleSet("fp"), time.Minute)

	rs, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "BA", rs.Flights[0].Carrier)
	assert.Equal(t, now.Add(time.Minute), rs.TTLExpiresAt)

	_, ok = c.Get("other")
	assert.False(t, ok)

	hits, misses, _ := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, now := newTestCache(t, 4)
	c.Put("fp", sampleSet("fp"), time.Minute)

	*now = now.Add(59 * time.Second)
	_, ok := c.Get("fp")
	assert.True(t, ok)

	*now = now.Add(time.Second)
	_, ok = c.Get("fp")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c, _ := newTestCache(t, 4)
	c.Put("fp", sampleSet("fp"), 0)
	assert.Equal(t, 0, c.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Put("a", sampleSet("a"), time.Hour)
	c.Put("b", sampleSet("b"), time.Hour)
	_, _ = c.Get("a")
	c.Put("c", sampleSet("c"), time.Hour)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB, "least recently used entry is evicted")
	assert.True(t, okC)
}

func TestCache_CopiesOnReadAndWrite(t *testing.T) {
	c, _ := newTestCache(t, 4)
	in := sampleSet("fp")
	c.Put("fp", in, time.Hour)
	in.Flights[0].Stops[0] = "XXX"

	out, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "DUB", out.Flights[0].Stops[0])

	out.Flights[0].Carrier = "ZZ"
	again, _ := c.Get("fp")
	assert.Equal(t, "BA", again.Flights[0].Carrier)
}

func TestCache_GetOrCompute_SingleFlight(t *testing.T) {
	c, _ := newTestCache(t, 4)

	var computes atomic.Int32
	release := make(chan struct{})
	fn := func() (*model.ResultSet, error) {
		computes.Add(1)
		<-release
		return sampleSet("fp"), nil
	}

	const callers = 20
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]*model.ResultSet, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], _, errs[i] = c.GetOrCompute(context.Background(), "fp", time.Hour, fn)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), computes.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "BA", results[i].Flights[0].Carrier)
	}
	// Every caller owns its copy.
	results[0].Flights[0].Carrier = "ZZ"
	assert.Equal(t, "BA", results[1].Flights[0].Carrier)
}

func TestCache_GetOrCompute_HitSkipsCompute(t *testing.T) {
	c, _ := newTestCache(t, 4)
	c.Put("fp", sampleSet("fp"), time.Hour)

	rs, hit, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func() (*model.ResultSet, error) {
		t.Fatal("should not compute on hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.NotNil(t, rs)
}

func TestCache_GetOrCompute_FailureStoresNothing(t *testing.T) {
	c, _ := newTestCache(t, 4)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func() (*model.ResultSet, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	rs, hit, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func() (*model.ResultSet, error) {
		return sampleSet("fp"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, rs)
	assert.Equal(t, 1, c.Len())
}

func TestCache_GetOrCompute_WaiterHonorsOwnContext(t *testing.T) {
	c, _ := newTestCache(t, 4)
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, _ = c.GetOrCompute(context.Background(), "fp", time.Hour, func() (*model.ResultSet, error) {
			<-release
			return sampleSet("fp"), nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.GetOrCompute(ctx, "fp", time.Hour, func() (*model.ResultSet, error) {
		t.Error("waiter must not start its own computation")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
	_, ok := c.Get("fp")
	assert.True(t, ok, "the first caller's computation still lands")
}
