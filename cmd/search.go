package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/config"
	"github.com/sells-group/flightscan/internal/export"
	"github.com/sells-group/flightscan/internal/insight"
	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/pipeline"
	"github.com/sells-group/flightscan/pkg/anthropic"
)

var (
	searchInput   queryInput
	searchTimeout time.Duration
	searchNoCache bool
	searchFormat  string
	searchOut     string
	searchSummary string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search flights for one route and date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		q, err := searchInput.toQuery()
		if err != nil {
			return err
		}
		summarizer, err := newSummarizer(searchSummary, cfg)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, cfg, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		rs, err := env.Pipeline.RunQuery(ctx, q, pipeline.Options{
			Timeout:  searchTimeout,
			UseCache: !searchNoCache,
		})
		if err != nil {
			return eris.Wrap(err, "search")
		}
		return renderResult(ctx, rs, summarizer)
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchInput.From, "from", "", "origin airport code (IATA)")
	f.StringVar(&searchInput.To, "to", "", "destination airport code (IATA)")
	f.StringVar(&searchInput.Date, "date", "", "departure date (YYYY-MM-DD)")
	f.StringVar(&searchInput.Return, "return", "", "return date (YYYY-MM-DD)")
	f.IntVar(&searchInput.Passengers, "passengers", 1, "number of passengers")
	f.StringVar(&searchInput.Cabin, "cabin", string(model.CabinEconomy), "cabin class (economy, premium, business, first)")
	f.DurationVar(&searchTimeout, "timeout", 0, "overall query deadline (default pipeline.timeout_secs)")
	f.BoolVar(&searchNoCache, "no-cache", false, "bypass the result cache")
	f.StringVar(&searchFormat, "format", formatTable, "output format (table, json, csv)")
	f.StringVar(&searchOut, "out", "", "also save results to a .json, .csv or .xlsx file")
	f.StringVar(&searchSummary, "summary", "", "append a summary (basic, claude)")
	_ = searchCmd.MarkFlagRequired("from")
	_ = searchCmd.MarkFlagRequired("to")
	_ = searchCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(searchCmd)
}

// renderResult prints rs to stdout in searchFormat, warnings to stderr, and
// optionally saves and summarizes it.
func renderResult(ctx context.Context, rs *model.ResultSet, summarizer insight.Summarizer) error {
	records := export.Records(rs)

	if err := writeRecords(os.Stdout, searchFormat, records); err != nil {
		return err
	}
	formatWarnings(os.Stderr, rs.Warnings)

	if searchOut != "" {
		if err := saveRecords(searchOut, searchFormat, records); err != nil {
			return err
		}
		zap.L().Info("results saved", zap.String("path", searchOut), zap.Int("flights", len(records)))
	}

	if summarizer != nil {
		s, err := summarizer.Summarize(ctx, rs.Query, records)
		if err != nil {
			return eris.Wrap(err, "summarize")
		}
		formatSummary(os.Stderr, s)
	}
	return nil
}

// newSummarizer returns the summarizer named by kind, or nil for none.
func newSummarizer(kind string, c *config.Config) (insight.Summarizer, error) {
	switch kind {
	case "":
		return nil, nil
	case insight.SourceBasic:
		return insight.Basic{}, nil
	case insight.SourceClaude:
		if c.Anthropic.Key == "" {
			return nil, eris.New("anthropic.key is required for --summary claude (FLIGHTSCAN_ANTHROPIC_KEY)")
		}
		return insight.NewClaude(anthropic.NewClient(c.Anthropic.Key), c.Anthropic.Model, c.Anthropic.MaxTokens), nil
	default:
		return nil, eris.Errorf("unknown summary %q (basic, claude)", kind)
	}
}
