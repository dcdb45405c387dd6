package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/flightscan/internal/model"
)

func testResultSet() *model.ResultSet {
	edt := time.FixedZone("EDT", -4*3600)
	bst := time.FixedZone("BST", 3600)
	return &model.ResultSet{Flights: []model.Flight{
		{
			Carrier:         "Aer Lingus",
			FlightNumber:    "EI104",
			Origin:          "JFK",
			Destination:     "LHR",
			DepartTime:      time.Date(2024, 6, 1, 18, 0, 0, 0, edt),
			ArriveTime:      time.Date(2024, 6, 2, 9, 15, 0, 0, bst),
			DurationMinutes: 555,
			Price:           model.Price{Amount: decimal.RequireFromString("489.99"), Currency: "USD"},
			Stops:           []string{"DUB"},
			Source:          "reference",
		},
		{
			Carrier:         "Virgin, Atlantic",
			Origin:          "JFK",
			Destination:     "LHR",
			DepartTime:      time.Date(2024, 6, 1, 19, 0, 0, 0, edt),
			ArriveTime:      time.Date(2024, 6, 2, 7, 0, 0, 0, bst),
			DurationMinutes: 420,
			Price:           model.Price{Amount: decimal.NewFromInt(512), Currency: "USD"},
			Source:          "reference",
		},
	}}
}

func TestRecords(t *testing.T) {
	t.Parallel()

	recs := Records(testResultSet())
	require.Len(t, recs, 2)
	require.NotNil(t, recs[0].FlightNumber)
	assert.Equal(t, "EI104", *recs[0].FlightNumber)
	assert.Nil(t, recs[1].FlightNumber)
	assert.Equal(t, "2024-06-01T18:00:00-04:00", recs[0].DepartTime)
	assert.Equal(t, "2024-06-02T09:15:00+01:00", recs[0].ArriveTime)
	assert.Equal(t, Price{Amount: "489.99", Currency: "USD"}, recs[0].Price)
	assert.Equal(t, []string{}, recs[1].Stops)

	assert.Empty(t, Records(nil))
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Records(testResultSet())))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "EI104", got[0]["flight_number"])
	assert.Nil(t, got[1]["flight_number"])
	assert.Contains(t, got[1], "flight_number")
	assert.Equal(t, []any{}, got[1]["stops"])
	assert.Equal(t, map[string]any{"amount": "512", "currency": "USD"}, got[1]["price"])
	assert.Equal(t, float64(555), got[0]["duration_minutes"])
}

func TestWriteJSON_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Records(testResultSet())))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{
		"Aer Lingus", "EI104", "JFK", "LHR",
		"2024-06-01T18:00:00-04:00", "2024-06-02T09:15:00+01:00",
		"555", "489.99", "USD", "DUB", "reference",
	}, rows[1])
	// Absent optional fields are empty and commas are quoted.
	assert.Equal(t, "Virgin, Atlantic", rows[2][0])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "", rows[2][9])
}

func TestWriteCSV_MultipleStops(t *testing.T) {
	t.Parallel()

	rs := testResultSet()
	rs.Flights[0].Stops = []string{"DUB", "KEF"}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Records(rs)))
	assert.Contains(t, buf.String(), ",DUB|KEF,")
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Records(testResultSet())))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet["Flights"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "carrier", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "EI104", sheet.Rows[1].Cells[1].String())

	n, err := sheet.Rows[1].Cells[6].Int()
	require.NoError(t, err)
	assert.Equal(t, 555, n)
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, "yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
