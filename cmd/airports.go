package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/flightscan/internal/airport"
)

var airportsCmd = &cobra.Command{
	Use:   "airports",
	Short: "List the known airports and their time zones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatAirports(os.Stdout, airport.Default().All())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(airportsCmd)
}

// formatAirports writes a tabular list of airports to out.
func formatAirports(out io.Writer, airports []airport.Airport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tCITY\tCOUNTRY\tTZ")
	for _, a := range airports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Code, a.Name, a.City, a.Country, a.TimeZone)
	}
	_ = w.Flush()
}
