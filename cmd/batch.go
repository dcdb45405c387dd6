package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/internal/pipeline"
)

var (
	batchFile        string
	batchConcurrency int
	batchMetricsAddr string
	batchNoCache     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a YAML file of searches through the shared pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(batchFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", batchFile)
		}
		inputs, err := parseBatchFile(data)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, cfg, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		addr := batchMetricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		if addr != "" {
			srv, err := startMetricsServer(addr, newMetricsRouter(env))
			if err != nil {
				return err
			}
			defer shutdownMetricsServer(srv)
		}

		results := processBatch(ctx, inputs, batchConcurrency, func(ctx context.Context, q model.Query) (*model.ResultSet, error) {
			return env.Pipeline.RunQuery(ctx, q, pipeline.Options{UseCache: !batchNoCache})
		})
		formatBatchResults(os.Stdout, results)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "YAML file with a list of queries")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max queries in flight")
	batchCmd.Flags().StringVar(&batchMetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address (default metrics.addr)")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "bypass the result cache")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// batchFileDoc is the YAML layout of a batch query file.
type batchFileDoc struct {
	Queries []queryInput `yaml:"queries"`
}

// parseBatchFile decodes a batch file. It fails only on malformed YAML or an
// empty list; bad queries are reported per entry.
func parseBatchFile(data []byte) ([]queryInput, error) {
	var doc batchFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "batch: parse query file")
	}
	if len(doc.Queries) == 0 {
		return nil, eris.New("batch: query file lists no queries")
	}
	return doc.Queries, nil
}

// searchFunc runs one query.
type searchFunc func(ctx context.Context, q model.Query) (*model.ResultSet, error)

// batchResult is the outcome of one batch entry.
type batchResult struct {
	Input  queryInput
	Result *model.ResultSet
	Err    error
}

// processBatch runs inputs concurrently with at most concurrency in flight and
// returns one result per input in input order. Individual failures do not
// stop the batch.
func processBatch(ctx context.Context, inputs []queryInput, concurrency int, search searchFunc) []batchResult {
	if concurrency < 1 {
		concurrency = 1
	}
	zap.L().Info("processing batch",
		zap.Int("queries", len(inputs)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]batchResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, in := range inputs {
		g.Go(func() error {
			results[i].Input = in
			log := zap.L().With(zap.Int("entry", i))

			q, err := in.toQuery()
			if err == nil {
				log = log.With(zap.String("query", q.String()))
				results[i].Result, err = search(gctx, q)
			}
			if err != nil {
				failed.Add(1)
				results[i].Err = err
				log.Error("batch query failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("batch query complete",
				zap.Int("flights", len(results[i].Result.Flights)),
				zap.Int("warnings", len(results[i].Result.Warnings)),
			)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}

// formatBatchResults writes one line per batch entry to out.
func formatBatchResults(out io.Writer, results []batchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROUTE\tDATE\tFLIGHTS\tWARNINGS\tCHEAPEST\tERROR")
	_, _ = fmt.Fprintln(w, "-----\t----\t-------\t--------\t--------\t-----")

	for _, r := range results {
		route := r.Input.From + "-" + r.Input.To
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t%s\n", route, r.Input.Date, r.Err)
			continue
		}
		cheapest := "-"
		if len(r.Result.Flights) > 0 {
			p := r.Result.Flights[0].Price
			cheapest = p.Amount.String() + " " + p.Currency
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t\n",
			route,
			r.Input.Date,
			len(r.Result.Flights),
			len(r.Result.Warnings),
			cheapest,
		)
	}
	_ = w.Flush()
}
