// Package reconcile validates, deduplicates and orders normalized flights.
package reconcile

import (
	"sort"
	"time"

	"github.com/sells-group/flightscan/internal/model"
)

// Drop reasons counted in Stats.Invalid.
const (
	ReasonArriveNotAfterDepart = "arrive_not_after_depart"
	ReasonNegativePrice        = "negative_price"
	ReasonNegativeDuration     = "negative_duration"
	ReasonMissingCarrier       = "missing_carrier"
)

// DefaultDurationTolerance is the allowed gap between a stated duration and
// the time delta before the record is flagged.
const DefaultDurationTolerance = 90 * time.Minute

// Stats reports what Reconcile did.
type Stats struct {
	Invalid           map[string]int
	DurationFlagged   int
	DuplicatesRemoved int
	Currencies        []string
}

// Reconciler holds the reconciliation policy.
type Reconciler struct {
	DurationTolerance time.Duration
}

// New returns a Reconciler. A non-positive tolerance uses the default.
func New(tolerance time.Duration) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultDurationTolerance
	}
	return &Reconciler{DurationTolerance: tolerance}
}

type dedupKey struct {
	carrier, flightNumber string
	depart                int64
	origin, destination   string
}

// Reconcile drops invalid flights, keeps the most recently fetched of each
// duplicate group (the first seen on ties), and sorts the survivors by price,
// then duration. The input is not modified.
func (r *Reconciler) Reconcile(flights []model.Flight) ([]model.Flight, Stats) {
	tolerance := r.DurationTolerance
	if tolerance <= 0 {
		tolerance = DefaultDurationTolerance
	}

	stats := Stats{Invalid: map[string]int{}}
	index := make(map[dedupKey]int, len(flights))
	out := make([]model.Flight, 0, len(flights))

	for _, f := range flights {
		if reason := invalid(f); reason != "" {
			stats.Invalid[reason]++
			continue
		}

		key := dedupKey{
			carrier:      f.Carrier,
			flightNumber: f.FlightNumber,
			depart:       f.DepartTime.UnixNano(),
			origin:       f.Origin,
			destination:  f.Destination,
		}
		if i, dup := index[key]; dup {
			stats.DuplicatesRemoved++
			if f.FetchedAt.After(out[i].FetchedAt) {
				out[i] = f
			}
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}

	currencies := map[string]bool{}
	for i := range out {
		if durationMismatch(out[i], tolerance) {
			stats.DurationFlagged++
		}
		currencies[out[i].Price.Currency] = true
	}
	for c := range currencies {
		stats.Currencies = append(stats.Currencies, c)
	}
	sort.Strings(stats.Currencies)

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, stats
}

// invalid returns the reason f breaks a Flight invariant, or "".
func invalid(f model.Flight) string {
	switch {
	case f.Carrier == "":
		return ReasonMissingCarrier
	case !f.ArriveTime.After(f.DepartTime):
		return ReasonArriveNotAfterDepart
	case f.Price.Amount.IsNegative():
		return ReasonNegativePrice
	case f.DurationMinutes < 0:
		return ReasonNegativeDuration
	}
	return ""
}

// DurationMismatch reports whether f's stated duration is further than
// tolerance from its arrive-depart delta.
func DurationMismatch(f model.Flight, tolerance time.Duration) bool {
	return durationMismatch(f, tolerance)
}

func durationMismatch(f model.Flight, tolerance time.Duration) bool {
	delta := f.ArriveTime.Sub(f.DepartTime) - time.Duration(f.DurationMinutes)*time.Minute
	if delta < 0 {
		delta = -delta
	}
	return delta > tolerance
}

// less orders by amount, then duration. The remaining keys make the order
// total so that the result does not depend on adapter completion order.
func less(a, b model.Flight) bool {
	if c := a.Price.Amount.Cmp(b.Price.Amount); c != 0 {
		return c < 0
	}
	if a.DurationMinutes != b.DurationMinutes {
		return a.DurationMinutes < b.DurationMinutes
	}
	if a.Carrier != b.Carrier {
		return a.Carrier < b.Carrier
	}
	if a.FlightNumber != b.FlightNumber {
		return a.FlightNumber < b.FlightNumber
	}
	if !a.DepartTime.Equal(b.DepartTime) {
		return a.DepartTime.Before(b.DepartTime)
	}
	return a.Source < b.Source
}
