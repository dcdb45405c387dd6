package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStops(t *testing.T) {
	tests := []struct {
		in   any
		want []string
	}{
		{nil, nil},
		{"", nil},
		{"Nonstop", nil},
		{"non-stop", nil},
		{"Direct", nil},
		{0, nil},
		{0.0, nil},
		{"0 stops", nil},
		{[]string{}, nil},
		{[]string{"dub"}, []string{"DUB"}},
		{[]any{"DUB", " kef "}, []string{"DUB", "KEF"}},
		{"DUB, KEF", []string{"DUB", "KEF"}},
		{"dub;kef|ams", []string{"DUB", "KEF", "AMS"}},
	}
	for _, tt := range tests {
		got, err := ParseStops(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestParseStops_Failures(t *testing.T) {
	for _, in := range []any{1, 2.0, "1 stop", "2 stops", "Dublin", []string{"DUB", "X1"}, map[string]int{}} {
		_, err := ParseStops(in)
		assert.Error(t, err, "%v", in)
	}
}
