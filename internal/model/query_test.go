package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseCabinClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want CabinClass
	}{
		{"economy", CabinEconomy},
		{"", CabinEconomy},
		{"ECONOMY", CabinEconomy},
		{"Premium_Economy", CabinPremium},
		{"premium-economy", CabinPremium},
		{"business", CabinBusiness},
		{" First ", CabinFirst},
	}
	for _, tt := range tests {
		got, err := ParseCabinClass(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseCabinClass("steerage")
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d := mustDate(t, "2024-06-01")
	assert.Equal(t, Date{Year: 2024, Month: time.June, Day: 1}, d)
	assert.Equal(t, "2024-06-01", d.String())

	_, err := ParseDate("2024-02-30")
	assert.True(t, errors.Is(err, ErrInvalidQuery))

	_, err = ParseDate("06/01/2024")
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	d := mustDate(t, "2024-12-24")
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-12-24"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)
}

func TestQueryValidate(t *testing.T) {
	t.Parallel()

	base := Query{
		Origin:      "JFK",
		Destination: "LHR",
		DepartDate:  mustDate(t, "2024-06-01"),
		Passengers:  1,
		Cabin:       CabinEconomy,
	}
	require.NoError(t, base.Validate())

	early := mustDate(t, "2024-05-30")
	same := mustDate(t, "2024-06-01")

	tests := []struct {
		name   string
		mutate func(q *Query)
		ok     bool
	}{
		{"same airport", func(q *Query) { q.Destination = "jfk" }, false},
		{"bad origin", func(q *Query) { q.Origin = "JF" }, false},
		{"digits in code", func(q *Query) { q.Destination = "L1R" }, false},
		{"zero passengers", func(q *Query) { q.Passengers = 0 }, false},
		{"return before depart", func(q *Query) { q.ReturnDate = &early }, false},
		{"return same day", func(q *Query) { q.ReturnDate = &same }, true},
		{"missing depart", func(q *Query) { q.DepartDate = Date{} }, false},
		{"unknown cabin", func(q *Query) { q.Cabin = "steerage" }, false},
		{"lowercase codes", func(q *Query) { q.Origin = "jfk"; q.Destination = "lhr" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			err := q.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidQuery), "got %v", err)
		})
	}
}

func TestFingerprint_SemanticallyIdentical(t *testing.T) {
	t.Parallel()

	ret := mustDate(t, "2024-06-10")
	a := Query{Origin: "JFK", Destination: "LHR", DepartDate: mustDate(t, "2024-06-01"), ReturnDate: &ret, Passengers: 2, Cabin: CabinPremium}
	b := Query{Origin: " jfk", Destination: "Lhr ", DepartDate: mustDate(t, "2024-06-01"), ReturnDate: &ret, Passengers: 2, Cabin: "Premium_Economy"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	// Rolled-over dates are normalized before fingerprinting.
	c := a
	c.DepartDate = Date{Year: 2024, Month: time.May, Day: 32}
	assert.Equal(t, a.Fingerprint(), c.Fingerprint())
}

func TestFingerprint_DistinguishesMeaning(t *testing.T) {
	t.Parallel()

	a := Query{Origin: "JFK", Destination: "LHR", DepartDate: mustDate(t, "2024-06-01"), Passengers: 1, Cabin: CabinEconomy}
	variants := []Query{a, a, a, a, a}
	variants[0].Destination = "LGW"
	variants[1].Passengers = 2
	variants[2].Cabin = CabinBusiness
	variants[3].DepartDate = mustDate(t, "2024-06-02")
	rd := mustDate(t, "2024-06-05")
	variants[4].ReturnDate = &rd

	seen := map[string]bool{a.Fingerprint(): true}
	for _, v := range variants {
		fp := v.Fingerprint()
		assert.False(t, seen[fp], "collision for %s", v)
		seen[fp] = true
	}
}

func TestFingerprint_Total(t *testing.T) {
	t.Parallel()

	var q Query
	assert.Len(t, q.Fingerprint(), 32)
	assert.Equal(t, q.Fingerprint(), Query{}.Fingerprint())
}
