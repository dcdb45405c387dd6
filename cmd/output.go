package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/export"
	"github.com/sells-group/flightscan/internal/insight"
	"github.com/sells-group/flightscan/internal/model"
)

const formatTable = "table"

// formatFlights writes a tabular list of flights to out.
func formatFlights(out io.Writer, records []export.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CARRIER\tFLIGHT\tDEPART\tARRIVE\tDURATION\tPRICE\tSTOPS\tSOURCE")
	_, _ = fmt.Fprintln(w, "-------\t------\t------\t------\t--------\t-----\t-----\t------")

	for _, r := range records {
		flight := ""
		if r.FlightNumber != nil {
			flight = *r.FlightNumber
		}
		stops := "nonstop"
		if len(r.Stops) > 0 {
			stops = strings.Join(r.Stops, ",")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
			r.Carrier,
			flight,
			r.DepartTime,
			r.ArriveTime,
			formatMinutes(r.DurationMinutes),
			r.Price.Amount, r.Price.Currency,
			stops,
			r.Source,
		)
	}
	_ = w.Flush()
}

// formatWarnings writes one line per warning to out.
func formatWarnings(out io.Writer, warnings []model.Warning) {
	for _, w := range warnings {
		if w.Source != "" {
			_, _ = fmt.Fprintf(out, "warning: %s [%s] %s\n", w.Code, w.Source, w.Message)
			continue
		}
		_, _ = fmt.Fprintf(out, "warning: %s %s\n", w.Code, w.Message)
	}
}

// formatSummary writes a summary's text and findings to out.
func formatSummary(out io.Writer, s *insight.Summary) {
	_, _ = fmt.Fprintf(out, "\nSummary (%s):\n%s\n", s.Source, s.Text)
	for _, f := range s.Findings {
		_, _ = fmt.Fprintf(out, "  - %s\n", f)
	}
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

// writeRecords renders records to out in format, which is table or one of
// the export formats.
func writeRecords(out io.Writer, format string, records []export.Record) error {
	if format == formatTable {
		formatFlights(out, records)
		return nil
	}
	return export.Write(out, format, records)
}

// formatFromPath infers an export format from a file extension.
func formatFromPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return export.FormatJSON
	case ".csv":
		return export.FormatCSV
	case ".xlsx":
		return export.FormatXLSX
	}
	if fallback == formatTable {
		return export.FormatJSON
	}
	return fallback
}

// saveRecords writes records to path in the format its extension names.
func saveRecords(path, fallback string, records []export.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "close %s", path)
		}
	}()
	return export.Write(f, formatFromPath(path, fallback), records)
}
