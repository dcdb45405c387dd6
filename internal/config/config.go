package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/flightscan/internal/adapter"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit   CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Sources   []SourceConfig  `yaml:"sources" mapstructure:"sources"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PipelineConfig configures query orchestration and the result cache.
type PipelineConfig struct {
	TimeoutSecs        int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	AdapterTimeoutSecs int `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
	CacheTTLMins       int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	CacheCapacity      int `yaml:"cache_capacity" mapstructure:"cache_capacity"`
}

// Timeout is the default per-query deadline.
func (c PipelineConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AdapterTimeout bounds a single adapter call.
func (c PipelineConfig) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSecs) * time.Second
}

// CacheTTL is how long result sets stay cached.
func (c PipelineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMins) * time.Minute
}

// RetryConfig configures adapter retries.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	Jitter      float64 `yaml:"jitter" mapstructure:"jitter"`
}

// CircuitConfig configures the per-source circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	HalfOpenProbes   int `yaml:"half_open_probes" mapstructure:"half_open_probes"`
}

// NormalizeConfig configures field normalization and validation.
type NormalizeConfig struct {
	DefaultCurrency       string `yaml:"default_currency" mapstructure:"default_currency"`
	DurationToleranceMins int    `yaml:"duration_tolerance_mins" mapstructure:"duration_tolerance_mins"`
}

// DurationTolerance is the allowed gap between stated and computed duration.
func (c NormalizeConfig) DurationTolerance() time.Duration {
	return time.Duration(c.DurationToleranceMins) * time.Minute
}

// BrowserConfig configures page rendering.
type BrowserConfig struct {
	Headless          bool     `yaml:"headless" mapstructure:"headless"`
	ExecPath          string   `yaml:"exec_path" mapstructure:"exec_path"`
	UserAgents        []string `yaml:"user_agents" mapstructure:"user_agents"`
	SessionsPerMinute float64  `yaml:"sessions_per_minute" mapstructure:"sessions_per_minute"`
	ReadyTimeoutSecs  int      `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
	DebugDir          string   `yaml:"debug_dir" mapstructure:"debug_dir"`
}

// ReadyTimeout bounds the wait for a page's ready selector.
func (c BrowserConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSecs) * time.Second
}

// Renderer names accepted in SourceConfig.Renderer.
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// SourceConfig describes one results page source.
type SourceConfig struct {
	Name        string         `yaml:"name" mapstructure:"name"`
	Enabled     *bool          `yaml:"enabled" mapstructure:"enabled"`
	Renderer    string         `yaml:"renderer" mapstructure:"renderer"`
	URLTemplate string         `yaml:"url_template" mapstructure:"url_template"`
	Layout      adapter.Layout `yaml:"layout" mapstructure:"layout"`
}

// IsEnabled reports whether the source should be queried. Unset means yes.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ReferenceSource is used when no sources are configured.
func ReferenceSource() SourceConfig {
	return SourceConfig{
		Name:        "reference",
		Renderer:    RendererChrome,
		URLTemplate: adapter.DefaultURLTemplate,
		Layout:      adapter.DefaultLayout(),
	}
}

// EnabledSources returns the configured sources that are enabled, or the
// reference source when none are configured.
func (c *Config) EnabledSources() []SourceConfig {
	if len(c.Sources) == 0 {
		return []SourceConfig{ReferenceSource()}
	}
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// StoreConfig configures the run history backend. An empty driver disables
// run history.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the claude summarizer.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MetricsConfig configures the Prometheus endpoint served in batch mode.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLIGHTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pipeline.timeout_secs", 60)
	v.SetDefault("pipeline.adapter_timeout_secs", 45)
	v.SetDefault("pipeline.cache_ttl_mins", 15)
	v.SetDefault("pipeline.cache_capacity", 512)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("retry.jitter", 0.0)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.cooldown_secs", 60)
	v.SetDefault("circuit.half_open_probes", 1)
	v.SetDefault("normalize.default_currency", "")
	v.SetDefault("normalize.duration_tolerance_mins", 90)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.sessions_per_minute", 20)
	v.SetDefault("browser.ready_timeout_secs", 15)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("metrics.addr", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode: "search",
// "batch" or "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "search", "batch":
	case "runs":
		if c.Store.Driver == "" {
			errs = append(errs, "store.driver is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.Driver != "" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Pipeline.TimeoutSecs <= 0 {
		errs = append(errs, "pipeline.timeout_secs must be positive")
	}
	if c.Pipeline.CacheCapacity <= 0 {
		errs = append(errs, "pipeline.cache_capacity must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be at least 1")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, "retry.jitter must be between 0 and 1")
	}
	if c.Browser.SessionsPerMinute < 0 {
		errs = append(errs, "browser.sessions_per_minute must not be negative")
	}

	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("sources[%d].name is required", i))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("sources[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true
		switch s.Renderer {
		case "", RendererChrome, RendererHTTP:
		default:
			errs = append(errs, fmt.Sprintf("sources[%d].renderer %q must be chrome or http", i, s.Renderer))
		}
	}
	if len(c.Sources) > 0 && len(c.EnabledSources()) == 0 {
		errs = append(errs, "at least one source must be enabled")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
