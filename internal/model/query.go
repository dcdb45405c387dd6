package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidQuery is returned when a query is rejected before any source is contacted.
var ErrInvalidQuery = eris.New("invalid query")

// CabinClass is the requested fare cabin.
type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinPremium  CabinClass = "premium"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

// ParseCabinClass maps user input onto a CabinClass. Matching is
// case-insensitive and accepts the common premium-economy spellings.
func ParseCabinClass(s string) (CabinClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "economy", "coach":
		return CabinEconomy, nil
	case "premium", "premium_economy", "premium-economy", "premium economy":
		return CabinPremium, nil
	case "business":
		return CabinBusiness, nil
	case "first":
		return CabinFirst, nil
	}
	return "", eris.Wrapf(ErrInvalidQuery, "unknown cabin class %q", s)
}

// Valid reports whether c is one of the four known cabins.
func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremium, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string. Out-of-range days are rejected rather
// than rolled over.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, eris.Wrapf(ErrInvalidQuery, "date %q must be YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.In(time.UTC).Before(o.In(time.UTC))
}

// String formats d as YYYY-MM-DD after normalizing it through the Gregorian
// calendar, so Date{2024, 2, 30} prints as 2024-03-01.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.In(time.UTC).Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: unmarshal date")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Query is one flight search request. It is passed by value through the
// pipeline and never modified after it is issued.
type Query struct {
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	DepartDate  Date       `json:"depart_date"`
	ReturnDate  *Date      `json:"return_date,omitempty"`
	Passengers  int        `json:"passengers"`
	Cabin       CabinClass `json:"cabin_class"`
}

// Validate checks the query invariants. Every failure wraps ErrInvalidQuery.
func (q Query) Validate() error {
	origin := normalizeCode(q.Origin)
	dest := normalizeCode(q.Destination)
	if !isAirportCode(origin) {
		return eris.Wrapf(ErrInvalidQuery, "origin %q is not a 3-letter airport code", q.Origin)
	}
	if !isAirportCode(dest) {
		return eris.Wrapf(ErrInvalidQuery, "destination %q is not a 3-letter airport code", q.Destination)
	}
	if origin == dest {
		return eris.Wrapf(ErrInvalidQuery, "origin and destination are both %s", origin)
	}
	if q.DepartDate.IsZero() {
		return eris.Wrap(ErrInvalidQuery, "depart date is required")
	}
	if q.ReturnDate != nil && q.ReturnDate.Before(q.DepartDate) {
		return eris.Wrapf(ErrInvalidQuery, "return date %s is before depart date %s", q.ReturnDate, q.DepartDate)
	}
	if q.Passengers < 1 {
		return eris.Wrapf(ErrInvalidQuery, "passenger count must be positive, got %d", q.Passengers)
	}
	if !canonicalCabin(q.Cabin).Valid() {
		return eris.Wrapf(ErrInvalidQuery, "unknown cabin class %q", q.Cabin)
	}
	return nil
}

// Canonical returns q with codes uppercased and the cabin canonicalized.
func (q Query) Canonical() Query {
	out := q
	out.Origin = normalizeCode(q.Origin)
	out.Destination = normalizeCode(q.Destination)
	out.Cabin = canonicalCabin(q.Cabin)
	if q.ReturnDate != nil {
		rd := DateOf(q.ReturnDate.In(time.UTC))
		out.ReturnDate = &rd
	}
	if !q.DepartDate.IsZero() {
		out.DepartDate = DateOf(q.DepartDate.In(time.UTC))
	}
	return out
}

// Fingerprint returns the cache key for q. Queries that differ only in code
// case, surrounding whitespace or cabin spelling share a fingerprint. It is
// defined for invalid queries as well.
func (q Query) Fingerprint() string {
	c := q.Canonical()
	ret := "-"
	if c.ReturnDate != nil {
		ret = c.ReturnDate.String()
	}
	canonical := strings.Join([]string{
		"v1",
		c.Origin,
		c.Destination,
		c.DepartDate.String(),
		ret,
		strconv.Itoa(c.Passengers),
		string(c.Cabin),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:16])
}

// String renders q for logs.
func (q Query) String() string {
	c := q.Canonical()
	s := fmt.Sprintf("%s-%s %s", c.Origin, c.Destination, c.DepartDate)
	if c.ReturnDate != nil {
		s += "/" + c.ReturnDate.String()
	}
	return fmt.Sprintf("%s x%d %s", s, c.Passengers, c.Cabin)
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func isAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func canonicalCabin(c CabinClass) CabinClass {
	parsed, err := ParseCabinClass(string(c))
	if err != nil {
		return c
	}
	return parsed
}
