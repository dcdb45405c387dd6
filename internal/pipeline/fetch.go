package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/adapter"
	"github.com/sells-group/flightscan/internal/metrics"
	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/normalize"
	"github.com/sells-group/flightscan/internal/reconcile"
)

// fetchResult is what one adapter produced for a query.
type fetchResult struct {
	index    int
	source   string
	rows     []model.RawRow
	err      error
	elapsed  time.Duration
	finished bool
	// expired is set when the request deadline passed before or while the
	// adapter failed.
	expired bool
}

// warning returns the failure warning for r, if it failed.
func (r fetchResult) warning() (model.Warning, bool) {
	switch {
	case !r.finished || (r.err != nil && r.expired):
		return model.Warning{
			Code:    model.WarnRequestTimeout,
			Source:  r.source,
			Message: "request deadline passed before the source answered",
		}, true
	case r.err != nil:
		return model.Warning{
			Code:    model.WarnAdapterFailed,
			Source:  r.source,
			Message: adapter.Classify(r.source, r.err).Error(),
		}, true
	default:
		return model.Warning{}, false
	}
}

// resultLabel names the outcome of r for metrics.
func (r fetchResult) resultLabel() string {
	switch {
	case !r.finished || (r.err != nil && r.expired):
		return model.WarnRequestTimeout
	case r.err != nil:
		return string(adapter.KindOf(r.err))
	default:
		return "ok"
	}
}

// fetch queries every adapter concurrently and returns one result per adapter
// in registration order. It returns once all adapters answered or the fetch
// deadline passed, whichever comes first; adapters still running are
// cancelled. The fetch deadline is ctx's deadline less a reserve for
// assembling the result.
func (p *Pipeline) fetch(ctx context.Context, q model.Query) []fetchResult {
	results := make([]fetchResult, len(p.adapters))
	for i, a := range p.adapters {
		results[i] = fetchResult{index: i, source: a.Name()}
	}
	if len(p.adapters) == 0 {
		return results
	}

	fctx, cancel := fetchContext(ctx)
	defer cancel()

	// Buffered so adapters finishing after the deadline never block.
	done := make(chan fetchResult, len(p.adapters))
	for i, a := range p.adapters {
		go func() {
			actx := fctx
			if p.cfg.AdapterTimeout > 0 {
				var acancel context.CancelFunc
				actx, acancel = context.WithTimeout(fctx, p.cfg.AdapterTimeout)
				defer acancel()
			}
			start := time.Now()
			rows, err := a.Search(actx, q)
			done <- fetchResult{
				index:    i,
				source:   a.Name(),
				rows:     rows,
				err:      err,
				elapsed:  time.Since(start),
				finished: true,
				expired:  err != nil && fctx.Err() != nil,
			}
		}()
	}

	for remaining := len(p.adapters); remaining > 0; remaining-- {
		select {
		case r := <-done:
			results[r.index] = r
			logFetch(r)
		case <-fctx.Done():
		drain:
			for {
				select {
				case r := <-done:
					results[r.index] = r
				default:
					break drain
				}
			}
			for _, r := range results {
				if !r.finished {
					zap.L().Warn("pipeline: source cancelled at request deadline", zap.String("source", r.source))
				}
			}
			return results
		}
	}
	return results
}

// fetchContext bounds fetching to ctx's deadline less a tenth of the time
// left, at most maxAssembleReserve.
func fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	reserve := time.Until(deadline) / 10
	if reserve > maxAssembleReserve {
		reserve = maxAssembleReserve
	}
	if reserve < 0 {
		reserve = 0
	}
	return context.WithDeadline(ctx, deadline.Add(-reserve))
}

func logFetch(r fetchResult) {
	if r.err != nil {
		return
	}
	zap.L().Debug("pipeline: source answered",
		zap.String("source", r.source),
		zap.Int("rows", len(r.rows)),
		zap.Duration("elapsed", r.elapsed),
	)
}

// normalizeAll converts the rows of every successful source and returns the
// flights plus one records_dropped warning per source and error kind.
func (p *Pipeline) normalizeAll(results []fetchResult, stats *model.Stats) ([]model.Flight, []model.Warning) {
	var flights []model.Flight
	var warnings []model.Warning

	for _, r := range results {
		dropped := map[normalize.ErrorKind]int{}
		for _, row := range r.rows {
			f, err := p.normalizer.Normalize(row, r.source)
			if err != nil {
				kind := normalize.KindOf(err)
				if kind == "" {
					kind = normalize.KindInvalidValue
				}
				dropped[kind]++
				zap.L().Debug("pipeline: row dropped",
					zap.String("source", r.source),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
				continue
			}
			flights = append(flights, f)
		}
		stats.Normalized += len(r.rows) - sumDropped(dropped)

		for _, kind := range sortedKinds(dropped) {
			n := dropped[kind]
			if stats.NormalizeDropped == nil {
				stats.NormalizeDropped = map[string]int{}
			}
			stats.NormalizeDropped[string(kind)] += n
			p.metrics.AddDropped(metrics.StageNormalize, string(kind), n)
			warnings = append(warnings, model.Warning{
				Code:    model.WarnRecordsDropped,
				Source:  r.source,
				Message: fmt.Sprintf("%d rows dropped: %s", n, kind),
			})
		}
	}
	return flights, warnings
}

// reconcileWarnings reports validation drops, duration flags and mixed
// currencies.
func reconcileWarnings(st reconcile.Stats) []model.Warning {
	var warnings []model.Warning

	reasons := make([]string, 0, len(st.Invalid))
	for reason := range st.Invalid {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnRecordsInvalid,
			Message: fmt.Sprintf("%d records dropped: %s", st.Invalid[reason], reason),
		})
	}

	if st.DurationFlagged > 0 {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnDurationMismatch,
			Message: fmt.Sprintf("%d records state a duration that disagrees with their times", st.DurationFlagged),
		})
	}
	if len(st.Currencies) > 1 {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnMixedCurrency,
			Message: "prices are in several currencies and sorted by raw amount: " + strings.Join(st.Currencies, ", "),
		})
	}
	return warnings
}

func sumDropped(m map[normalize.ErrorKind]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func sortedKinds(m map[normalize.ErrorKind]int) []normalize.ErrorKind {
	kinds := make([]normalize.ErrorKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
