// Package pipeline turns one search query into a cached, deduplicated and
// validated result set by fanning out to source adapters.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/adapter"
	"github.com/sells-group/flightscan/internal/cache"
	"github.com/sells-group/flightscan/internal/metrics"
	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/normalize"
	"github.com/sells-group/flightscan/internal/reconcile"
	"github.com/sells-group/flightscan/internal/store"
)

// ErrNoDataAvailable is returned when every source adapter failed.
var ErrNoDataAvailable = eris.New("pipeline: no data available")

// Defaults applied when Config leaves a field unset.
const (
	DefaultTimeout  = 60 * time.Second
	DefaultCacheTTL = 15 * time.Minute

	recordTimeout = 10 * time.Second

	// maxAssembleReserve caps the share of the request timeout held back from
	// fetching for normalize, reconcile and run recording.
	maxAssembleReserve = 250 * time.Millisecond
)

// State is a step of one query's lifecycle.
type State string

const (
	StatePending     State = "pending"
	StateCacheCheck  State = "cache_check"
	StateCacheHit    State = "cache_hit"
	StateCacheMiss   State = "cache_miss"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateReconciling State = "reconciling"
	StateCaching     State = "caching"
	StateDone        State = "done"
)

// Config holds orchestration limits.
type Config struct {
	// DefaultTimeout bounds a query whose Options carry no timeout.
	DefaultTimeout time.Duration
	// AdapterTimeout bounds each adapter call. Zero means only the request
	// deadline applies.
	AdapterTimeout time.Duration
	// CacheTTL is how long a computed result set stays cached.
	CacheTTL time.Duration
}

// Options controls a single RunQuery call.
type Options struct {
	// Timeout bounds the whole query. Non-positive uses Config.DefaultTimeout.
	Timeout time.Duration
	// UseCache enables cache lookup and single-flight sharing. A computed
	// result is cached either way.
	UseCache bool
}

// RunRecorder appends computed result sets to run history.
type RunRecorder interface {
	SaveRun(ctx context.Context, rs *model.ResultSet) (*store.Run, error)
}

// Pipeline orchestrates adapters, normalization, reconciliation and caching.
// It is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	adapters   []adapter.Adapter
	normalizer *normalize.Normalizer
	reconciler *reconcile.Reconciler
	cache      *cache.Cache
	runs       RunRecorder
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates a Pipeline. Adapters are merged in the order given. cache, runs
// and m may be nil.
func New(
	cfg Config,
	adapters []adapter.Adapter,
	normalizer *normalize.Normalizer,
	reconciler *reconcile.Reconciler,
	c *cache.Cache,
	runs RunRecorder,
	m *metrics.Metrics,
) *Pipeline {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if normalizer == nil {
		normalizer = normalize.New("")
	}
	if reconciler == nil {
		reconciler = reconcile.New(0)
	}
	return &Pipeline{
		cfg:        cfg,
		adapters:   adapters,
		normalizer: normalizer,
		reconciler: reconciler,
		cache:      c,
		runs:       runs,
		metrics:    m,
		now:        time.Now,
	}
}

// Adapters returns the names of the registered adapters in merge order.
func (p *Pipeline) Adapters() []string {
	names := make([]string, len(p.adapters))
	for i, a := range p.adapters {
		names[i] = a.Name()
	}
	return names
}

// RunQuery answers q. It returns model.ErrInvalidQuery for malformed queries
// and ErrNoDataAvailable when no adapter produced data. Every other failure
// is reported in the result's Warnings.
func (p *Pipeline) RunQuery(ctx context.Context, q model.Query, opts Options) (*model.ResultSet, error) {
	start := time.Now()
	fp := q.Fingerprint()
	log := zap.L().With(zap.String("fingerprint", fp))
	transition(log, StatePending)

	if err := q.Validate(); err != nil {
		p.metrics.ObserveQuery(metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		p.metrics.ObserveQuery(metrics.OutcomeError, time.Since(start))
		return nil, eris.Wrap(err, "pipeline: run query")
	}
	q = q.Canonical()
	log = log.With(zap.String("query", q.String()))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.cfg.DefaultTimeout
	}

	var (
		rs  *model.ResultSet
		hit bool
		err error
	)
	deadline := start.Add(timeout)
	if opts.UseCache && p.cache != nil {
		transition(log, StateCacheCheck)
		wctx, wcancel := context.WithDeadline(ctx, deadline)
		rs, hit, err = p.cache.GetOrCompute(wctx, fp, p.cfg.CacheTTL, func() (*model.ResultSet, error) {
			transition(log, StateCacheMiss)
			// A shared flight must outlive the caller that started it.
			cctx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
			defer cancel()
			return p.compute(cctx, q, fp, log)
		})
		if err != nil && ctx.Err() == nil && wctx.Err() != nil && !eris.Is(err, ErrNoDataAvailable) {
			// This caller's deadline passed while another caller's fetch ran.
			err = eris.Wrapf(ErrNoDataAvailable, "pipeline: request deadline of %s passed waiting for a shared fetch", timeout)
		}
		wcancel()
		if hit {
			transition(log, StateCacheHit)
		}
	} else {
		cctx, cancel := context.WithDeadline(ctx, deadline)
		rs, err = p.compute(cctx, q, fp, log)
		cancel()
		if err == nil && p.cache != nil {
			p.cache.Put(fp, rs, p.cfg.CacheTTL)
		}
	}

	elapsed := time.Since(start)
	switch {
	case err == nil && hit:
		p.metrics.ObserveQuery(metrics.OutcomeCacheHit, elapsed)
	case err == nil:
		p.metrics.ObserveQuery(metrics.OutcomeOK, elapsed)
	case eris.Is(err, ErrNoDataAvailable):
		p.metrics.ObserveQuery(metrics.OutcomeNoData, elapsed)
	default:
		p.metrics.ObserveQuery(metrics.OutcomeError, elapsed)
	}
	if err != nil {
		log.Warn("pipeline: query failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	transition(log, StateDone)
	log.Info("pipeline: query complete",
		zap.Bool("cache_hit", hit),
		zap.Int("flights", len(rs.Flights)),
		zap.Int("warnings", len(rs.Warnings)),
		zap.Duration("elapsed", elapsed),
	)
	return rs, nil
}

// compute runs fetch, normalize and reconcile for q under ctx's deadline.
func (p *Pipeline) compute(ctx context.Context, q model.Query, fp string, log *zap.Logger) (*model.ResultSet, error) {
	transition(log, StateFetching)
	rs := &model.ResultSet{
		Fingerprint: fp,
		Query:       q,
		Stats:       model.Stats{SourcesQueried: len(p.adapters)},
	}

	results := p.fetch(ctx, q)
	var succeeded []fetchResult
	for _, r := range results {
		if w, failed := r.warning(); failed {
			rs.Warnings = append(rs.Warnings, w)
			rs.Stats.SourcesFailed++
			p.metrics.ObserveAdapter(r.source, r.resultLabel())
			continue
		}
		rs.Stats.SourcesSucceeded++
		rs.Stats.RowsExtracted += len(r.rows)
		p.metrics.ObserveAdapter(r.source, "ok")
		succeeded = append(succeeded, r)
	}
	if len(succeeded) == 0 {
		return nil, eris.Wrapf(ErrNoDataAvailable, "pipeline: %d of %d sources failed", rs.Stats.SourcesFailed, rs.Stats.SourcesQueried)
	}

	transition(log, StateNormalizing)
	flights, dropWarnings := p.normalizeAll(succeeded, &rs.Stats)
	rs.Warnings = append(rs.Warnings, dropWarnings...)

	transition(log, StateReconciling)
	out, rst := p.reconciler.Reconcile(flights)
	rs.Flights = out
	rs.Stats.InvalidDropped = rst.Invalid
	rs.Stats.DuplicatesRemoved = rst.DuplicatesRemoved
	rs.Stats.DurationFlagged = rst.DurationFlagged
	rs.Warnings = append(rs.Warnings, reconcileWarnings(rst)...)
	for reason, n := range rst.Invalid {
		p.metrics.AddDropped(metrics.StageValidate, reason, n)
	}
	p.metrics.ObserveFlights(len(out))

	rs.GeneratedAt = p.now().UTC()
	rs.TTLExpiresAt = rs.GeneratedAt.Add(p.cfg.CacheTTL)

	transition(log, StateCaching)
	p.record(ctx, rs, log)
	return rs, nil
}

// record appends rs to run history. Failures are logged only.
func (p *Pipeline) record(ctx context.Context, rs *model.ResultSet, log *zap.Logger) {
	if p.runs == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	run, err := p.runs.SaveRun(rctx, rs)
	if err != nil {
		log.Warn("pipeline: failed to record run", zap.Error(err))
		return
	}
	log.Debug("pipeline: run recorded", zap.String("run_id", run.ID))
}

func transition(log *zap.Logger, s State) {
	log.Debug("pipeline: state", zap.String("state", string(s)))
}
