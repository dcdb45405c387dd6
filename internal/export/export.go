// Package export renders result sets for downstream consumers as JSON, CSV or
// XLSX records.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/flightscan/internal/model"
)

// Price is the exported fare. Amount is a decimal string so that no
// precision is lost to floating point.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Record is one exported flight, in downstream field order.
type Record struct {
	Carrier         string   `json:"carrier"`
	FlightNumber    *string  `json:"flight_number"`
	Origin          string   `json:"origin"`
	Destination     string   `json:"destination"`
	DepartTime      string   `json:"depart_time"`
	ArriveTime      string   `json:"arrive_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Price           Price    `json:"price"`
	Stops           []string `json:"stops"`
	Source          string   `json:"source"`
}

// Columns is the CSV and XLSX header.
var Columns = []string{
	"carrier",
	"flight_number",
	"origin",
	"destination",
	"depart_time",
	"arrive_time",
	"duration_minutes",
	"price_amount",
	"price_currency",
	"stops",
	"source",
}

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Records converts the flights of rs in their stored order.
func Records(rs *model.ResultSet) []Record {
	if rs == nil {
		return []Record{}
	}
	out := make([]Record, 0, len(rs.Flights))
	for _, f := range rs.Flights {
		out = append(out, FromFlight(f))
	}
	return out
}

// FromFlight converts one flight. Times keep their offsets.
func FromFlight(f model.Flight) Record {
	r := Record{
		Carrier:         f.Carrier,
		Origin:          f.Origin,
		Destination:     f.Destination,
		DepartTime:      f.DepartTime.Format(time.RFC3339),
		ArriveTime:      f.ArriveTime.Format(time.RFC3339),
		DurationMinutes: f.DurationMinutes,
		Price:           Price{Amount: f.Price.Amount.String(), Currency: f.Price.Currency},
		Stops:           append([]string{}, f.Stops...),
		Source:          f.Source,
	}
	if f.FlightNumber != "" {
		n := f.FlightNumber
		r.FlightNumber = &n
	}
	return r
}

// Write renders records in format.
func Write(w io.Writer, format string, records []Record) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "export: encode json")
}

// WriteCSV writes a header and one row per record. Stops are joined with "|".
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range records {
		if err := cw.Write(r.row()); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single "Flights" sheet with the CSV columns. Duration is
// a numeric cell; everything else is text.
func WriteXLSX(w io.Writer, records []Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Flights")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}
	for _, r := range records {
		row := sheet.AddRow()
		for i, v := range r.row() {
			cell := row.AddCell()
			if Columns[i] == "duration_minutes" {
				cell.SetInt(r.DurationMinutes)
				continue
			}
			cell.SetString(v)
		}
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func (r Record) row() []string {
	var number string
	if r.FlightNumber != nil {
		number = *r.FlightNumber
	}
	return []string{
		r.Carrier,
		number,
		r.Origin,
		r.Destination,
		r.DepartTime,
		r.ArriveTime,
		strconv.Itoa(r.DurationMinutes),
		r.Price.Amount,
		r.Price.Currency,
		strings.Join(r.Stops, "|"),
		r.Source,
	}
}
