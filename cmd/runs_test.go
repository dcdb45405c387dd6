package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/flightscan/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Origin:      "JFK",
			Destination: "LHR",
			DepartDate:  "2025-07-01",
			Flights:     12,
			Warnings:    1,
			CreatedAt:   now,
		},
		{
			ID:          "def12345-6789-0000-0000-000000000000",
			Origin:      "SFO",
			Destination: "NRT",
			DepartDate:  "2025-08-01",
			CreatedAt:   now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "ROUTE")
	assert.Contains(t, output, "abc12345-6789-0000-0000-000000000000")
	assert.Contains(t, output, "JFK-LHR")
	assert.Contains(t, output, "SFO-NRT")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestFormatRunsList_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, nil)
	assert.Contains(t, buf.String(), "ID")
}
