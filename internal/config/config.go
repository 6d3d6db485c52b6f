// Package config handles loading and saving benchmap configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/benchmap/config.yaml
//
// Values are layered: defaults, then the YAML file, then BENCHMAP_*
// environment variables (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/benchmap/internal/ingest"
	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// EngineConfig holds viewport synchronization settings.
type EngineConfig struct {
	ZoomThreshold  float64       `yaml:"zoom_threshold,omitempty"`  // Latitude span in degrees
	QuietInterval  time.Duration `yaml:"quiet_interval,omitempty"`  // e.g. 200ms
	ViewportMargin float64       `yaml:"viewport_margin,omitempty"` // Fraction of span per side
	AddCap         int           `yaml:"add_cap,omitempty"`
	DrainBacklog   *bool         `yaml:"drain_backlog,omitempty"`
}

// DataConfig locates the state packs and priority list.
type DataConfig struct {
	PacksDir     string        `yaml:"packs_dir,omitempty"`
	States       []string      `yaml:"states,omitempty"` // Enabled state codes, empty for all
	Strict       bool          `yaml:"strict,omitempty"` // Only known state codes
	Manifest     string        `yaml:"manifest,omitempty"`
	PriorityFile string        `yaml:"priority_file,omitempty"`
	Workers      int           `yaml:"workers,omitempty"`
	CacheMB      int           `yaml:"cache_mb,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9090"; empty disables
}

// Config is the top-level configuration for benchmap.
type Config struct {
	Engine  EngineConfig  `yaml:"engine,omitempty"`
	Data    DataConfig    `yaml:"data,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	drain := true
	return Config{
		Engine: EngineConfig{
			ZoomThreshold:  benchmap.DefaultZoomThreshold,
			QuietInterval:  benchmap.DefaultQuietInterval,
			ViewportMargin: benchmap.DefaultViewportMargin,
			AddCap:         benchmap.DefaultAddCap,
			DrainBacklog:   &drain,
		},
		Data: DataConfig{
			PacksDir:     ".",
			Strict:       true,
			Workers:      runtime.NumCPU(),
			CacheMB:      256,
			PollInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the XDG config directory for benchmap.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "benchmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "benchmap")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns defaults if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.ApplyEnv()
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path and applies environment
// overrides. Returns defaults if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	cfg.Data.PacksDir = expandHome(cfg.Data.PacksDir)
	cfg.Data.Manifest = expandHome(cfg.Data.Manifest)
	cfg.Data.PriorityFile = expandHome(cfg.Data.PriorityFile)

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from BENCHMAP_* environment variables.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	float("BENCHMAP_ZOOM_THRESHOLD", &c.Engine.ZoomThreshold)
	duration("BENCHMAP_QUIET_INTERVAL", &c.Engine.QuietInterval)
	float("BENCHMAP_VIEWPORT_MARGIN", &c.Engine.ViewportMargin)
	integer("BENCHMAP_ADD_CAP", &c.Engine.AddCap)

	str("BENCHMAP_PACKS_DIR", &c.Data.PacksDir)
	str("BENCHMAP_MANIFEST", &c.Data.Manifest)
	str("BENCHMAP_PRIORITY_FILE", &c.Data.PriorityFile)
	integer("BENCHMAP_WORKERS", &c.Data.Workers)
	if v, ok := os.LookupEnv("BENCHMAP_STATES"); ok {
		c.Data.States = splitList(v)
	}

	str("BENCHMAP_LOG_LEVEL", &c.Log.Level)
	str("BENCHMAP_LOG_FORMAT", &c.Log.Format)
	str("BENCHMAP_METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if c.Engine.ZoomThreshold <= 0 {
		errs = append(errs, fmt.Errorf("engine.zoom_threshold must be positive, got %v", c.Engine.ZoomThreshold))
	}
	if c.Engine.QuietInterval < 0 {
		errs = append(errs, fmt.Errorf("engine.quiet_interval must not be negative, got %v", c.Engine.QuietInterval))
	}
	if c.Engine.ViewportMargin < 0 {
		errs = append(errs, fmt.Errorf("engine.viewport_margin must not be negative, got %v", c.Engine.ViewportMargin))
	}
	if c.Engine.AddCap <= 0 {
		errs = append(errs, fmt.Errorf("engine.add_cap must be positive, got %d", c.Engine.AddCap))
	}
	if c.Data.Workers < 0 {
		errs = append(errs, fmt.Errorf("data.workers must not be negative, got %d", c.Data.Workers))
	}
	if c.Data.CacheMB < 0 {
		errs = append(errs, fmt.Errorf("data.cache_mb must not be negative, got %d", c.Data.CacheMB))
	}
	for _, code := range c.Data.States {
		if _, _, ok := ingest.ParsePackName(strings.TrimSpace(code) + ".csv"); !ok {
			errs = append(errs, fmt.Errorf("data.states: %q is not a two-letter state code", code))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// EngineOptions converts the engine section to library options.
func (c Config) EngineOptions(logger *slog.Logger) benchmap.EngineOptions {
	opts := benchmap.DefaultEngineOptions()
	opts.ZoomThreshold = c.Engine.ZoomThreshold
	opts.QuietInterval = c.Engine.QuietInterval
	opts.ViewportMargin = c.Engine.ViewportMargin
	opts.AddCap = c.Engine.AddCap
	if c.Engine.DrainBacklog != nil {
		opts.DrainBacklog = *c.Engine.DrainBacklog
	}
	opts.Logger = logger
	return opts
}

// Source builds the pack loader described by the data section. The cache
// may be nil.
func (c Config) Source(cache *ingest.PackCache, logger *slog.Logger) *ingest.Source {
	opts := ingest.DefaultLoadOptions()
	if c.Data.Workers > 0 {
		opts.Workers = c.Data.Workers
	}
	opts.Cache = cache

	return &ingest.Source{
		Dir:      c.Data.PacksDir,
		Codes:    c.Data.States,
		Strict:   c.Data.Strict,
		Manifest: c.Data.Manifest,
		Options:  opts,
		Logger:   logger,
	}
}

// NewPackCache returns a cache sized by data.cache_mb, or nil when caching
// is disabled.
func (c Config) NewPackCache() *ingest.PackCache {
	if c.Data.CacheMB <= 0 {
		return nil
	}
	return ingest.NewPackCache(int64(c.Data.CacheMB) * 1024 * 1024)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
