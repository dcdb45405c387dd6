package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/adapter"
	"github.com/sells-group/flightscan/internal/cache"
	"github.com/sells-group/flightscan/internal/config"
	"github.com/sells-group/flightscan/internal/metrics"
	"github.com/sells-group/flightscan/internal/normalize"
	"github.com/sells-group/flightscan/internal/pipeline"
	"github.com/sells-group/flightscan/internal/reconcile"
	"github.com/sells-group/flightscan/internal/resilience"
	"github.com/sells-group/flightscan/internal/store"
)

// pipelineEnv holds the pipeline and the shared state behind it for the
// search and batch commands.
type pipelineEnv struct {
	Store    store.Store // nil when run history is disabled
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Metrics
	Breakers *resilience.ServiceBreakers
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates cfg for mode, opens run history when configured and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config, mode string) (*pipelineEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	m := metrics.New()

	var st store.Store
	var runs pipeline.RunRecorder
	if c.Store.Driver != "" {
		var err error
		st, err = initStore(ctx, c)
		if err != nil {
			return nil, err
		}
		runs = st
	} else {
		zap.L().Debug("store.driver not set, run history disabled")
	}

	resultCache, err := cache.New(c.Pipeline.CacheCapacity)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.Wrap(err, "init cache")
	}

	breakerCfg := resilience.FromCircuitConfig(c.Circuit.FailureThreshold, c.Circuit.CooldownSecs, c.Circuit.HalfOpenProbes)
	breakerCfg.ShouldTrip = adapter.IsRetryable
	breakerCfg.OnStateChange = m.BreakerObserver()
	breakers := resilience.NewServiceBreakers(breakerCfg)

	retry := resilience.FromRetryConfig(c.Retry.MaxAttempts, c.Retry.BaseDelayMs, c.Retry.MaxDelayMs, c.Retry.Jitter)
	adapters := guardAdapters(c, breakers, retry)

	p := pipeline.New(
		pipeline.Config{
			DefaultTimeout: c.Pipeline.Timeout(),
			AdapterTimeout: c.Pipeline.AdapterTimeout(),
			CacheTTL:       c.Pipeline.CacheTTL(),
		},
		adapters,
		normalize.New(c.Normalize.DefaultCurrency),
		reconcile.New(c.Normalize.DurationTolerance()),
		resultCache,
		runs,
		m,
	)

	zap.L().Info("pipeline initialized",
		zap.Strings("sources", p.Adapters()),
		zap.Bool("run_history", st != nil),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Metrics:  m,
		Breakers: breakers,
	}, nil
}

// guardAdapters wraps every source as RateLimited(Guard(page)). The limiter
// sits outside the guard so token waits are neither retried nor counted by
// the source's breaker.
func guardAdapters(c *config.Config, breakers *resilience.ServiceBreakers, retry resilience.RetryConfig) []adapter.Adapter {
	guarded := adapter.Guarded(buildAdapters(c), breakers, retry)
	return adapter.Throttled(guarded, c.Browser.SessionsPerMinute, 1)
}

// buildAdapters creates one PageAdapter per enabled source. The chrome and
// http renderers are shared between the sources that use them.
func buildAdapters(c *config.Config) []adapter.Adapter {
	var chrome, plain adapter.Renderer
	renderer := func(kind string) adapter.Renderer {
		if kind == config.RendererHTTP {
			if plain == nil {
				plain = adapter.NewHTTPRenderer(c.Browser.UserAgents)
			}
			return plain
		}
		if chrome == nil {
			chrome = adapter.NewChromeRenderer(adapter.ChromeOptions{
				Headless:     c.Browser.Headless,
				ExecPath:     c.Browser.ExecPath,
				UserAgents:   c.Browser.UserAgents,
				ReadyTimeout: c.Browser.ReadyTimeout(),
			})
		}
		return chrome
	}

	sources := c.EnabledSources()
	out := make([]adapter.Adapter, 0, len(sources))
	for _, s := range sources {
		page := adapter.NewPageAdapter(adapter.PageOptions{
			Name:        s.Name,
			URLTemplate: s.URLTemplate,
			Layout:      s.Layout,
			Renderer:    renderer(s.Renderer),
			DebugDir:    c.Browser.DebugDir,
		})
		out = append(out, page)
	}
	return out
}

// initStore opens and migrates the configured run history store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
