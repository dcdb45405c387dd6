// Package insight summarizes exported search results for operators.
package insight

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/flightscan/internal/export"
	"github.com/sells-group/flightscan/internal/model"
)

// Summary sources.
const (
	SourceBasic  = "basic"
	SourceClaude = "claude"
)

// Summarizer produces a Summary of the records returned for a query.
type Summarizer interface {
	Summarize(ctx context.Context, q model.Query, records []export.Record) (*Summary, error)
}

// PriceStats describes the fares quoted in one currency.
type PriceStats struct {
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Average  decimal.Decimal `json:"average"`
	Median   decimal.Decimal `json:"median"`
}

// Summary is the outcome of summarizing one result set.
type Summary struct {
	Source   string         `json:"source"`
	Text     string         `json:"text"`
	Findings []string       `json:"findings"`
	Prices   []PriceStats   `json:"prices"`
	Cheapest *export.Record `json:"cheapest,omitempty"`
	Fastest  *export.Record `json:"fastest,omitempty"`
	Carriers map[string]int `json:"carriers"`
}

// Basic is the deterministic summarizer. It needs no external service.
type Basic struct{}

// Summarize computes price statistics per currency, the cheapest and fastest
// flights and a flight count per carrier.
func (Basic) Summarize(ctx context.Context, q model.Query, records []export.Record) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "insight: summarize")
	}
	s := &Summary{
		Source:   SourceBasic,
		Findings: []string{},
		Prices:   []PriceStats{},
		Carriers: map[string]int{},
	}
	if len(records) == 0 {
		s.Text = fmt.Sprintf("No flights found for %s.", q)
		return s, nil
	}

	byCurrency := map[string][]decimal.Decimal{}
	var cheapest, fastest int
	var cheapestAmt decimal.Decimal
	for i, r := range records {
		s.Carriers[r.Carrier]++

		amt, err := decimal.NewFromString(r.Price.Amount)
		if err != nil {
			return nil, eris.Wrapf(err, "insight: parse price of record %d", i)
		}
		byCurrency[r.Price.Currency] = append(byCurrency[r.Price.Currency], amt)
		if i == 0 || amt.LessThan(cheapestAmt) {
			cheapest, cheapestAmt = i, amt
		}
		if r.DurationMinutes < records[fastest].DurationMinutes {
			fastest = i
		}
	}
	s.Cheapest = &records[cheapest]
	s.Fastest = &records[fastest]

	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		s.Prices = append(s.Prices, priceStats(c, byCurrency[c]))
	}

	s.Text = fmt.Sprintf("Found %d flights for %s from %d carriers.", len(records), q, len(s.Carriers))
	for _, p := range s.Prices {
		s.Findings = append(s.Findings,
			fmt.Sprintf("%d fares in %s from %s to %s, average %s, median %s",
				p.Count, p.Currency, p.Min.StringFixed(2), p.Max.StringFixed(2),
				p.Average.StringFixed(2), p.Median.StringFixed(2)))
	}
	s.Findings = append(s.Findings,
		fmt.Sprintf("Cheapest: %s at %s %s", describe(*s.Cheapest), s.Cheapest.Price.Amount, s.Cheapest.Price.Currency),
		fmt.Sprintf("Fastest: %s in %d minutes", describe(*s.Fastest), s.Fastest.DurationMinutes),
	)
	return s, nil
}

func priceStats(currency string, amounts []decimal.Decimal) PriceStats {
	sorted := append([]decimal.Decimal(nil), amounts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(sorted)
	sum := decimal.Sum(sorted[0], sorted[1:]...)
	median := sorted[n/2]
	if n%2 == 0 {
		median = sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
	}
	return PriceStats{
		Currency: currency,
		Count:    n,
		Min:      sorted[0],
		Max:      sorted[n-1],
		Average:  sum.Div(decimal.NewFromInt(int64(n))).Round(2),
		Median:   median,
	}
}

func describe(r export.Record) string {
	name := r.Carrier
	if r.FlightNumber != nil {
		name += " " + *r.FlightNumber
	}
	return fmt.Sprintf("%s departing %s", name, r.DepartTime)
}
