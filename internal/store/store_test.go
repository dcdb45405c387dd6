package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightscan/internal/model"
)

func testResultSet(t *testing.T, origin, destination string) *model.ResultSet {
	t.Helper()
	day, err := model.ParseDate("2024-06-01")
	require.NoError(t, err)

	q := model.Query{Origin: origin, Destination: destination, DepartDate: day, Passengers: 1, Cabin: model.CabinEconomy}
	depart := time.Date(2024, 6, 1, 18, 30, 0, 0, time.FixedZone("EDT", -4*3600))
	return &model.ResultSet{
		Fingerprint: q.Fingerprint(),
		Query:       q,
		Flights: []model.Flight{{
			Carrier:         "BA",
			FlightNumber:    "BA112",
			Origin:          origin,
			Destination:     destination,
			DepartTime:      depart,
			ArriveTime:      depart.Add(7 * time.Hour),
			DurationMinutes: 420,
			Price:           model.Price{Amount: decimal.RequireFromString("612.40"), Currency: "USD"},
			Source:          "reference",
		}},
		Warnings:    []model.Warning{{Code: model.WarnAdapterFailed, Source: "other", Message: "timeout"}},
		GeneratedAt: depart,
	}
}
