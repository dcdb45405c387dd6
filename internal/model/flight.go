package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one semi-structured result row as a source adapter extracted it.
// Keys and value types are adapter-specific; the normalizer owns their meaning.
type RawRow map[string]any

// Price is a fare amount in a single ISO 4217 currency.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Flight is the canonical normalized flight record. Values are built once by
// the normalizer and never modified afterwards.
type Flight struct {
	Carrier         string    `json:"carrier"`
	FlightNumber    string    `json:"flight_number"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DepartTime      time.Time `json:"depart_time"`
	ArriveTime      time.Time `json:"arrive_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           Price     `json:"price"`
	Stops           []string  `json:"stops"`
	Source          string    `json:"source"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Nonstop reports whether the flight has no layovers.
func (f Flight) Nonstop() bool { return len(f.Stops) == 0 }

// Warning codes attached to a ResultSet.
const (
	WarnAdapterFailed    = "adapter_failed"
	WarnRequestTimeout   = "request_timeout"
	WarnRecordsDropped   = "records_dropped"
	WarnRecordsInvalid   = "records_invalid"
	WarnDurationMismatch = "duration_mismatch"
	WarnMixedCurrency    = "mixed_currency"
)

// Warning explains why a ResultSet may hold partial data.
type Warning struct {
	Code    string `json:"code"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// Stats counts what happened to rows on their way into a ResultSet.
type Stats struct {
	SourcesQueried    int            `json:"sources_queried"`
	SourcesSucceeded  int            `json:"sources_succeeded"`
	SourcesFailed     int            `json:"sources_failed"`
	RowsExtracted     int            `json:"rows_extracted"`
	Normalized        int            `json:"normalized"`
	NormalizeDropped  map[string]int `json:"normalize_dropped,omitempty"`
	InvalidDropped    map[string]int `json:"invalid_dropped,omitempty"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	DurationFlagged   int            `json:"duration_flagged"`
}

// ResultSet is the cached, deduplicated and sorted outcome of one query.
type ResultSet struct {
	Fingerprint  string    `json:"fingerprint"`
	Query        Query     `json:"query"`
	Flights      []Flight  `json:"flights"`
	Warnings     []Warning `json:"warnings,omitempty"`
	Stats        Stats     `json:"stats"`
	GeneratedAt  time.Time `json:"generated_at"`
	TTLExpiresAt time.Time `json:"ttl_expires_at"`
}

// Clone returns a copy of rs that shares no slices or maps with it.
func (rs *ResultSet) Clone() *ResultSet {
	if rs == nil {
		return nil
	}
	out := *rs
	if rs.Query.ReturnDate != nil {
		rd := *rs.Query.ReturnDate
		out.Query.ReturnDate = &rd
	}
	out.Flights = make([]Flight, len(rs.Flights))
	for i, f := range rs.Flights {
		f.Stops = append([]string(nil), f.Stops...)
		out.Flights[i] = f
	}
	out.Warnings = append([]Warning(nil), rs.Warnings...)
	out.Stats.NormalizeDropped = cloneCounts(rs.Stats.NormalizeDropped)
	out.Stats.InvalidDropped = cloneCounts(rs.Stats.InvalidDropped)
	return &out
}

// Expired reports whether rs has outlived its TTL at now.
func (rs *ResultSet) Expired(now time.Time) bool {
	return !now.Before(rs.TTLExpiresAt)
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
