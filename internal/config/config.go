// Package config loads kpiboard.yml and applies KPIBOARD_* overrides.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kpiboard/internal/filter"
	"kpiboard/internal/logging"
	"kpiboard/internal/source"
)

// FileName is the config file expected at the workspace root.
const FileName = "kpiboard.yml"

// DefaultFilterName is the preset used when none is named.
const DefaultFilterName = "default"

// Config is the decoded kpiboard.yml.
type Config struct {
	Source      source.Config            `yaml:"source"`
	Layout      map[string]string        `yaml:"layout"`
	Filters     map[string]filter.Filter `yaml:"filters"`
	Log         logging.Config           `yaml:"log"`
	Serve       ServeConfig              `yaml:"serve"`
	Targets     string                   `yaml:"targets"`
	CacheSize   int                      `yaml:"cache_size"`
	Concurrency int                      `yaml:"concurrency"`
}

// ServeConfig configures the long-running server.
type ServeConfig struct {
	Addr           string        `yaml:"addr"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Source: source.Config{
			Driver: source.DriverFile,
			File:   source.FileConfig{Root: "data"},
		},
		Filters: map[string]filter.Filter{DefaultFilterName: filter.Default()},
		Log:     logging.Config{Level: "info", Format: logging.FormatConsole},
		Serve: ServeConfig{
			Addr:           ":9464",
			ReloadInterval: 30 * time.Second,
		},
		Targets:     "metrics/targets.yml",
		CacheSize:   source.DefaultCacheSize,
		Concurrency: source.DefaultConcurrency,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Filters) == 0 {
		cfg.Filters = Default().Filters
	}
	if _, ok := cfg.Filters[DefaultFilterName]; !ok {
		cfg.Filters[DefaultFilterName] = filter.Default()
	}
	return cfg, nil
}

// LoadWithEnv loads path and applies process environment overrides.
func LoadWithEnv(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment overrides:
//
//	KPIBOARD_SOURCE_DRIVER=file|s3|http|sql
//	KPIBOARD_DATA_DIR=<dir>                 (file driver root)
//	KPIBOARD_S3_BUCKET / _REGION / _ENDPOINT / _PREFIX / _PATH_STYLE=true|false
//	KPIBOARD_HTTP_BASE_URL=<url>
//	KPIBOARD_SQL_DRIVER=pgx|sqlite, KPIBOARD_SQL_DSN, KPIBOARD_SQL_TABLE
//	KPIBOARD_LOG_LEVEL, KPIBOARD_LOG_FORMAT
//	KPIBOARD_SERVE_ADDR, KPIBOARD_RELOAD_INTERVAL=<duration>
//	KPIBOARD_TARGETS=<path>

// ApplyEnv overlays non-empty KPIBOARD_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Source.Driver, "KPIBOARD_SOURCE_DRIVER")
	set(&c.Source.File.Root, "KPIBOARD_DATA_DIR")
	set(&c.Source.S3.Bucket, "KPIBOARD_S3_BUCKET")
	set(&c.Source.S3.Region, "KPIBOARD_S3_REGION")
	set(&c.Source.S3.Endpoint, "KPIBOARD_S3_ENDPOINT")
	set(&c.Source.S3.Prefix, "KPIBOARD_S3_PREFIX")
	set(&c.Source.HTTP.BaseURL, "KPIBOARD_HTTP_BASE_URL")
	set(&c.Source.SQL.Driver, "KPIBOARD_SQL_DRIVER")
	set(&c.Source.SQL.DSN, "KPIBOARD_SQL_DSN")
	set(&c.Source.SQL.Table, "KPIBOARD_SQL_TABLE")
	set(&c.Log.Level, "KPIBOARD_LOG_LEVEL")
	set(&c.Log.Format, "KPIBOARD_LOG_FORMAT")
	set(&c.Serve.Addr, "KPIBOARD_SERVE_ADDR")
	set(&c.Targets, "KPIBOARD_TARGETS")

	if v := strings.TrimSpace(getenv("KPIBOARD_S3_PATH_STYLE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse KPIBOARD_S3_PATH_STYLE: %w", err)
		}
		c.Source.S3.PathStyle = b
	}
	if v := strings.TrimSpace(getenv("KPIBOARD_RELOAD_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse KPIBOARD_RELOAD_INTERVAL: %w", err)
		}
		c.Serve.ReloadInterval = d
	}
	return nil
}

// Validate checks driver names, filter presets and the layout.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Source.Driver)) {
	case "", source.DriverFile, source.DriverS3, source.DriverHTTP, source.DriverSQL:
	default:
		return fmt.Errorf("validate config: %w: %q", source.ErrUnknownDriver, c.Source.Driver)
	}
	for _, name := range c.FilterNames() {
		if _, err := filter.ParseDateRange(string(c.Filters[name].DateRange)); err != nil {
			return fmt.Errorf("validate filter %q: %w", name, err)
		}
	}
	if _, err := source.ParseLayout(c.Layout); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Serve.ReloadInterval < 0 {
		return fmt.Errorf("validate config: reload_interval must not be negative")
	}
	return nil
}

// SourceLayout returns the default layout with configured overrides.
func (c Config) SourceLayout() (source.Layout, error) {
	return source.ParseLayout(c.Layout)
}

// FilterNames lists the configured presets in sorted order.
func (c Config) FilterNames() []string {
	names := make([]string, 0, len(c.Filters))
	for name := range c.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter returns the named preset with defaults filled in.
func (c Config) Filter(name string) (filter.Filter, error) {
	if name == "" {
		name = DefaultFilterName
	}
	f, ok := c.Filters[name]
	if !ok {
		return filter.Filter{}, fmt.Errorf("unknown filter preset %q", name)
	}
	return Normalize(f)
}

// Normalize fills empty site/category with "all" and validates the range.
func Normalize(f filter.Filter) (filter.Filter, error) {
	if strings.TrimSpace(f.Site) == "" {
		f.Site = filter.All
	}
	if strings.TrimSpace(f.Category) == "" {
		f.Category = filter.All
	}
	r, err := filter.ParseDateRange(string(f.DateRange))
	if err != nil {
		return filter.Filter{}, err
	}
	f.DateRange = r
	return f, nil
}

// Marshal renders c as YAML.
func Marshal(c Config) ([]byte, error) {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
