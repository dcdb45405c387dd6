// Package normalize maps adapter rows onto the canonical Flight schema.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/model"
)

// Normalizer converts raw rows into Flights. It is safe for concurrent use.
type Normalizer struct {
	// DefaultCurrency applies when a price carries no symbol or code.
	DefaultCurrency string
	// Now stamps fetched_at for rows that lack it. Default: time.Now.
	Now func() time.Time
}

// New creates a Normalizer with the given default currency (may be empty).
func New(defaultCurrency string) *Normalizer {
	return &Normalizer{DefaultCurrency: strings.ToUpper(strings.TrimSpace(defaultCurrency)), Now: time.Now}
}

// Normalize builds a Flight from row. Missing mandatory fields (carrier,
// origin, destination, times, price) reject the row; nothing is guessed.
func (n *Normalizer) Normalize(row model.RawRow, sourceID string) (model.Flight, error) {
	carrier, ok := text(row["carrier"])
	if !ok {
		return model.Flight{}, reject(KindMissingField, "carrier", eris.New("carrier is required"))
	}

	origin, err := airportField(row, "origin")
	if err != nil {
		return model.Flight{}, err
	}
	dest, err := airportField(row, "destination")
	if err != nil {
		return model.Flight{}, err
	}

	depart, err := timeField(row, "depart_time", "depart_utc_offset")
	if err != nil {
		return model.Flight{}, err
	}
	arrive, err := timeField(row, "arrive_time", "arrive_utc_offset")
	if err != nil {
		return model.Flight{}, err
	}

	rawPrice, ok := row["price"]
	if !ok || isBlank(rawPrice) {
		return model.Flight{}, reject(KindMissingField, "price", eris.New("price is required"))
	}
	explicit, _ := text(row["currency"])
	price, err := ParsePrice(rawPrice, explicit, n.DefaultCurrency)
	if err != nil {
		return model.Flight{}, reject(KindPrice, "price", err)
	}

	duration := int(arrive.Sub(depart) / time.Minute)
	if v, ok := row["duration"]; ok && !isBlank(v) {
		if duration, err = ParseDuration(v); err != nil {
			return model.Flight{}, reject(KindDuration, "duration", err)
		}
	}

	stops, err := ParseStops(row["stops"])
	if err != nil {
		return model.Flight{}, reject(KindStops, "stops", err)
	}

	flightNumber, _ := text(row["flight_number"])
	flightNumber = strings.ToUpper(strings.Join(strings.Fields(flightNumber), ""))

	fetchedAt, err := n.fetchedAt(row["fetched_at"])
	if err != nil {
		return model.Flight{}, err
	}

	return model.Flight{
		Carrier:         carrier,
		FlightNumber:    flightNumber,
		Origin:          origin,
		Destination:     dest,
		DepartTime:      depart,
		ArriveTime:      arrive,
		DurationMinutes: duration,
		Price:           price,
		Stops:           stops,
		Source:          sourceID,
		FetchedAt:       fetchedAt,
	}, nil
}

func (n *Normalizer) fetchedAt(v any) (time.Time, error) {
	if v == nil || isBlank(v) {
		now := time.Now
		if n.Now != nil {
			now = n.Now
		}
		return now().UTC(), nil
	}
	return ParseTimestamp("fetched_at", v, nil)
}

func airportField(row model.RawRow, key string) (string, error) {
	s, ok := text(row[key])
	if !ok {
		return "", reject(KindMissingField, key, eris.Errorf("%s is required", key))
	}
	code := strings.ToUpper(s)
	if !isCode(code) {
		return "", reject(KindInvalidValue, key, eris.Errorf("%q is not an airport code", s))
	}
	return code, nil
}

func timeField(row model.RawRow, key, offsetKey string) (time.Time, error) {
	v, ok := row[key]
	if !ok || isBlank(v) {
		return time.Time{}, reject(KindMissingField, key, eris.Errorf("%s is required", key))
	}
	var offset any
	if o, ok := row[offsetKey]; ok && !isBlank(o) {
		offset = o
	}
	return ParseTimestamp(key, v, offset)
}

// text returns v as trimmed text. Empty strings count as absent.
func text(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = x
	case json.Number:
		s = x.String()
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
