package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_Zoned(t *testing.T) {
	for _, in := range []string{"2024-06-01T20:30:00-04:00", "2024-06-01T20:30-04:00", "2024-06-02T00:30:00Z", "2024-06-01T20:30:00.000-04:00"} {
		got, err := ParseTimestamp("depart_time", in, nil)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(time.Date(2024, 6, 2, 0, 30, 0, 0, time.UTC)), in)
	}

	got, err := ParseTimestamp("depart_time", "2024-06-01T20:30:00-04:00", nil)
	require.NoError(t, err)
	_, off := got.Zone()
	assert.Equal(t, -4*3600, off, "offset is kept as given")
}

func TestParseTimestamp_LocalWithOffset(t *testing.T) {
	tests := []struct {
		offset any
		want   int
	}{
		{"+05:30", 5*3600 + 1800},
		{"-0400", -4 * 3600},
		{"+5", 5 * 3600},
		{"Z", 0},
		{"UTC+01:00", 3600},
		{-240, -4 * 3600},
		{330.0, 5*3600 + 1800},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp("arrive_time", "2024-06-01 08:40", tt.offset)
		require.NoError(t, err, "%v", tt.offset)
		_, off := got.Zone()
		assert.Equal(t, tt.want, off, "%v", tt.offset)
		assert.Equal(t, 8, got.Hour())
	}
}

func TestParseTimestamp_Failures(t *testing.T) {
	_, err := ParseTimestamp("depart_time", "2024-06-01T20:30:00", nil)
	assert.Equal(t, KindTimezone, KindOf(err))

	_, err = ParseTimestamp("depart_time", "2024-06-01T20:30", "EST-ish")
	assert.Equal(t, KindTimezone, KindOf(err))

	_, err = ParseTimestamp("depart_time", "2024-06-01T20:30", "+16:00")
	assert.Equal(t, KindTimezone, KindOf(err))

	_, err = ParseTimestamp("depart_time", "tomorrow evening", nil)
	assert.Equal(t, KindInvalidValue, KindOf(err))

	_, err = ParseTimestamp("depart_time", 12345, nil)
	assert.Equal(t, KindInvalidValue, KindOf(err))
}

func TestParseTimestamp_TimeValue(t *testing.T) {
	in := time.Date(2024, 6, 1, 20, 30, 0, 0, time.FixedZone("", -4*3600))
	got, err := ParseTimestamp("depart_time", in, nil)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}
