// Package config loads the exporter configuration from a YAML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/Sternrassler/notion-export/pkg/export"
	"github.com/Sternrassler/notion-export/pkg/logging"
	"github.com/Sternrassler/notion-export/pkg/ratelimit"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvToken    = "NOTION_TOKEN"
	EnvTargetID = "NOTION_TARGET_ID"
	EnvRedisURL = "REDIS_URL"
	EnvLogLevel = "LOG_LEVEL"
)

// Config is the complete exporter configuration.
type Config struct {
	Token     string `yaml:"token"`
	TargetID  string `yaml:"target_id"`
	OutputDir string `yaml:"output_dir"`

	// BaseURL overrides the Notion API endpoint.
	BaseURL string `yaml:"base_url"`

	ExportProperty string `yaml:"export_property"`
	SortProperty   string `yaml:"sort_property"`
	SortDirection  string `yaml:"sort_direction"`

	Concurrency int  `yaml:"concurrency"`
	MaxDepth    int  `yaml:"max_depth"`
	HeadingBase int  `yaml:"heading_base"`
	LatestOnly  bool `yaml:"latest_only"`

	CategoryOrder     string   `yaml:"category_order"`
	CategoryExplicit  []string `yaml:"category_explicit"`
	CollationLanguage string   `yaml:"collation_language"`

	RedisURL          string        `yaml:"redis_url"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	Retry client.RetryConfig `yaml:"retry"`
	Log   logging.Config     `yaml:"log"`

	// MetricsAddr serves /metrics during the run when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the default configuration.
func Default() Config {
	session := export.DefaultConfig()
	return Config{
		OutputDir:         "export",
		Concurrency:       session.Concurrency,
		MaxDepth:          session.MaxDepth,
		HeadingBase:       session.HeadingBase,
		LatestOnly:        session.LatestOnly,
		CategoryOrder:     session.CategoryOrder,
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
		Retry:             session.Retry,
		Log:               logging.DefaultConfig(),
	}
}

// Load reads path (optional; "" skips the file), applies environment
// overrides, then overrides (command line flags), and validates the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	for _, override := range overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvToken, &c.Token)
	set(EnvTargetID, &c.TargetID)
	set(EnvRedisURL, &c.RedisURL)

	var level string
	set(EnvLogLevel, &level)
	if level != "" {
		c.Log.Level = logging.LogLevel(level)
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Token) == "" {
		errs = append(errs, fmt.Errorf("token is required (set %s)", EnvToken))
	}
	if strings.TrimSpace(c.TargetID) == "" {
		errs = append(errs, fmt.Errorf("target_id is required (set %s)", EnvTargetID))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be > 0 (got %d)", c.Concurrency))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_depth must be > 0 (got %d)", c.MaxDepth))
	}
	if c.HeadingBase < 1 || c.HeadingBase > 6 {
		errs = append(errs, fmt.Errorf("heading_base must be between 1 and 6 (got %d)", c.HeadingBase))
	}
	switch strings.ToLower(c.SortDirection) {
	case "", "asc", "ascending", "desc", "descending":
	default:
		errs = append(errs, fmt.Errorf("sort_direction must be ascending or descending (got %q)", c.SortDirection))
	}
	switch strings.ToLower(strings.TrimSpace(c.CategoryOrder)) {
	case "", export.OrderFirstSeen, export.OrderAlphabetical, export.OrderSchema:
	case export.OrderExplicit:
		if len(c.CategoryExplicit) == 0 {
			errs = append(errs, errors.New("category_explicit is required when category_order is explicit"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown category_order %q", c.CategoryOrder))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be >= 0 (got %s)", c.CacheTTL))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must be >= 0 (got %v)", c.RequestsPerSecond))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must be >= 0 (got %d)", c.Retry.MaxRetries))
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// Session returns the export session configuration.
func (c *Config) Session() export.Config {
	retry := c.Retry
	if retry.Retryable == nil {
		retry.Retryable = client.IsRetryable
	}
	return export.Config{
		Concurrency:       c.Concurrency,
		MaxDepth:          c.MaxDepth,
		HeadingBase:       c.HeadingBase,
		ExportProperty:    c.ExportProperty,
		SortProperty:      c.SortProperty,
		SortDirection:     c.SortDirection,
		LatestOnly:        c.LatestOnly,
		CategoryOrder:     c.CategoryOrder,
		CategoryExplicit:  c.CategoryExplicit,
		CollationLanguage: c.CollationLanguage,
		Retry:             retry,
	}
}

// Client returns the Notion client configuration, without Redis.
func (c *Config) Client() client.Config {
	cfg := client.DefaultConfig(c.Token)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	cfg.CacheTTL = c.CacheTTL
	cfg.RequestsPerSecond = c.RequestsPerSecond
	return cfg
}
