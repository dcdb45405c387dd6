package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightscan/internal/model"
)

func TestQueryInput_Defaults(t *testing.T) {
	q, err := queryInput{From: "jfk", To: "lhr", Date: "2024-06-01"}.toQuery()
	require.NoError(t, err)

	assert.Equal(t, 1, q.Passengers)
	assert.Equal(t, model.CabinEconomy, q.Cabin)
	assert.Nil(t, q.ReturnDate)
	assert.NoError(t, q.Validate())
	assert.Equal(t, "JFK", q.Canonical().Origin)
}

func TestQueryInput_Return(t *testing.T) {
	q, err := queryInput{From: "JFK", To: "LHR", Date: "2024-06-01", Return: " 2024-06-10 ", Passengers: 2, Cabin: "business"}.toQuery()
	require.NoError(t, err)

	require.NotNil(t, q.ReturnDate)
	assert.Equal(t, "2024-06-10", q.ReturnDate.String())
	assert.Equal(t, 2, q.Passengers)
	assert.Equal(t, model.CabinBusiness, q.Cabin)
}

func TestQueryInput_BadDates(t *testing.T) {
	_, err := queryInput{From: "JFK", To: "LHR", Date: "06/01/2024"}.toQuery()
	require.ErrorIs(t, err, model.ErrInvalidQuery)

	_, err = queryInput{From: "JFK", To: "LHR", Date: "2024-06-01", Return: "soon"}.toQuery()
	require.ErrorIs(t, err, model.ErrInvalidQuery)
}
