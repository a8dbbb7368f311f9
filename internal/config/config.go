// Package config loads and validates monitor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects how much work a run performs.
type Mode string

// Run modes.
const (
	ModeFull Mode = "full"
	ModeLite Mode = "lite"
)

// Config captures all run configuration knobs loaded via Viper. It is built
// once and passed explicitly into every component; nothing mutates it after
// Load returns.
type Config struct {
	Targets []string `mapstructure:"targets"`
	Mode    Mode     `mapstructure:"mode"`
	DryRun  bool     `mapstructure:"dry_run"`

	StatePath   string `mapstructure:"state_path"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	Fetch     FetchConfig     `mapstructure:"fetch"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Hidden    HiddenConfig    `mapstructure:"hidden"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Run       RunConfig       `mapstructure:"run"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FetchConfig governs the fetch gateway.
type FetchConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	ProxyURL         string `mapstructure:"proxy_url"`
	SolverURL        string `mapstructure:"solver_url"`
	CookieTTLSeconds int    `mapstructure:"cookie_ttl_seconds"`
}

// DiscoveryConfig bounds the budgeted crawl expansion.
type DiscoveryConfig struct {
	MaxPages             int `mapstructure:"max_pages"`
	MaxListings          int `mapstructure:"max_listings"`
	Workers              int `mapstructure:"workers"`
	BatchSize            int `mapstructure:"batch_size"`
	StopAfterNoNew       int `mapstructure:"stop_after_no_new"`
	StopAfterFetchErrors int `mapstructure:"stop_after_fetch_errors"`
	ForceThreshold       int `mapstructure:"force_threshold"`
}

// HiddenConfig bounds the hidden endpoint scanner.
type HiddenConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	Workers             int  `mapstructure:"workers"`
	BatchSize           int  `mapstructure:"batch_size"`
	HardMaxID           int  `mapstructure:"hard_max_id"`
	StopAfterNoInfo     int  `mapstructure:"stop_after_no_info"`
	StopAfterNoProgress int  `mapstructure:"stop_after_no_progress"`
	StopAfterDuplicates int  `mapstructure:"stop_after_duplicates"`
	StopAfterRedirects  int  `mapstructure:"stop_after_redirects"`
	MaxDurationSeconds  int  `mapstructure:"max_duration_seconds"`
}

// NotifyConfig holds notification channel credentials and pacing.
type NotifyConfig struct {
	BotToken           string `mapstructure:"bot_token"`
	ChatID             string `mapstructure:"chat_id"`
	MinIntervalMs      int    `mapstructure:"min_interval_ms"`
	MaxRetries         int    `mapstructure:"max_retries"`
	BackoffInitialMs   int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs       int    `mapstructure:"backoff_max_ms"`
	SendTimeoutSeconds int    `mapstructure:"send_timeout_seconds"`
}

// RunConfig governs overall run scheduling and concurrency.
type RunConfig struct {
	Workers                 int `mapstructure:"workers"`
	DomainBudgetSeconds     int `mapstructure:"domain_budget_seconds"`
	ScheduleIntervalMinutes int `mapstructure:"schedule_interval_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeFull))
	v.SetDefault("dry_run", false)
	v.SetDefault("state_path", "state.json")

	v.SetDefault("fetch.timeout_seconds", 25)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_initial_ms", 250)
	v.SetDefault("fetch.backoff_max_ms", 2500)
	v.SetDefault("fetch.cookie_ttl_seconds", 1800)

	v.SetDefault("discovery.max_pages", 40)
	v.SetDefault("discovery.max_listings", 2000)
	v.SetDefault("discovery.workers", 6)
	v.SetDefault("discovery.batch_size", 10)
	v.SetDefault("discovery.stop_after_no_new", 12)
	v.SetDefault("discovery.stop_after_fetch_errors", 12)
	v.SetDefault("discovery.force_threshold", 3)

	v.SetDefault("hidden.enabled", true)
	v.SetDefault("hidden.workers", 8)
	v.SetDefault("hidden.batch_size", 12)
	v.SetDefault("hidden.hard_max_id", 2000)
	v.SetDefault("hidden.stop_after_no_info", 30)
	v.SetDefault("hidden.stop_after_no_progress", 90)
	v.SetDefault("hidden.stop_after_duplicates", 60)
	v.SetDefault("hidden.stop_after_redirects", 50)
	v.SetDefault("hidden.max_duration_seconds", 180)

	v.SetDefault("notify.min_interval_ms", 1100)
	v.SetDefault("notify.max_retries", 3)
	v.SetDefault("notify.backoff_initial_ms", 500)
	v.SetDefault("notify.backoff_max_ms", 8000)
	v.SetDefault("notify.send_timeout_seconds", 15)

	v.SetDefault("run.workers", 4)
	v.SetDefault("run.domain_budget_seconds", 210)
	v.SetDefault("run.schedule_interval_minutes", 30)

	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Mode != ModeFull && c.Mode != ModeLite {
		return fmt.Errorf("mode must be %q or %q", ModeFull, ModeLite)
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path must be set")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be > 0")
	}
	if c.Discovery.Workers <= 0 || c.Discovery.BatchSize <= 0 {
		return fmt.Errorf("discovery.workers and discovery.batch_size must be > 0")
	}
	if c.Hidden.Enabled && (c.Hidden.Workers <= 0 || c.Hidden.BatchSize <= 0) {
		return fmt.Errorf("hidden.workers and hidden.batch_size must be > 0 when hidden scanning is enabled")
	}
	if c.Notify.BotToken != "" && c.Notify.ChatID == "" {
		return fmt.Errorf("notify.chat_id must be set when notify.bot_token is set")
	}
	return nil
}

// FetchTimeout returns the per-call fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// DomainBudget returns the per-domain soft wall-clock deadline.
func (c Config) DomainBudget() time.Duration {
	return time.Duration(c.Run.DomainBudgetSeconds) * time.Second
}

// ScheduleInterval returns the expected gap between runs; listings not seen
// for longer than this are flagged stale.
func (c Config) ScheduleInterval() time.Duration {
	return time.Duration(c.Run.ScheduleIntervalMinutes) * time.Minute
}
