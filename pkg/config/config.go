// Package config loads the application-level configuration consumed by
// cmd/journalctl: where the store lives, how it's tuned, and how logging
// and metrics are set up. The journal core itself never sees this
// struct — it is flattened into a string-keyed property map for
// journal.FromProperties, the same way the property table in the
// original store is populated.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/journalkeeper-go/journal/internal/logx"
	"github.com/journalkeeper-go/journal/internal/util"
)

// Config is the flat application configuration: where the journal lives
// and how it is tuned, plus the ambient logging/metrics knobs.
type Config struct {
	StorePath string `yaml:"store_path"`

	FileHeaderSize      int   `yaml:"file_header_size"`
	FileDataSize        int   `yaml:"file_data_size"`
	CachedFileCoreCount int   `yaml:"cached_file_core_count"`
	CachedFileMaxCount  int   `yaml:"cached_file_max_count"`
	MaxDirtySize        int64 `yaml:"max_dirty_size"`

	LogLevel logx.LogLevel `yaml:"log_level"`

	EnableMetrics bool `yaml:"enable_metrics"`
	MetricsPort   int  `yaml:"metrics_port"`
}

// Default returns the same defaults as the journal core's own property
// table, plus reasonable ambient defaults.
func Default() Config {
	return Config{
		StorePath:           "./data/journal",
		FileHeaderSize:      128,
		FileDataSize:        128 * 1024 * 1024,
		CachedFileCoreCount: 0,
		CachedFileMaxCount:  2,
		MaxDirtySize:        0,
		LogLevel:            logx.LogLevelInfo,
		EnableMetrics:       true,
		MetricsPort:         9090,
	}
}

// Properties flattens the journal-relevant fields into the string-keyed
// map journal.FromProperties expects.
func (c Config) Properties() map[string]string {
	return map[string]string{
		"file_header_size":       fmt.Sprintf("%d", c.FileHeaderSize),
		"file_data_size":         fmt.Sprintf("%d", c.FileDataSize),
		"cached_file_core_count": fmt.Sprintf("%d", c.CachedFileCoreCount),
		"cached_file_max_count":  fmt.Sprintf("%d", c.CachedFileMaxCount),
		"max_dirty_size":         fmt.Sprintf("%d", c.MaxDirtySize),
	}
}

// Load builds a Config from defaults, an optional YAML file (from
// -config, or $CONFIG_PATH if -config was not given), then explicit CLI
// flags, in that order of increasing precedence. fs should not yet have
// Parse called.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()

	var configPath string
	var storePath string
	var logLevel string
	var enableMetrics bool
	var metricsPort int

	fs.StringVar(&configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&storePath, "store-path", "", "journal store directory")
	fs.StringVar(&logLevel, "log-level", "", "debug|info|warn|error")
	fs.BoolVar(&enableMetrics, "enable-metrics", false, "serve Prometheus metrics")
	fs.IntVar(&metricsPort, "metrics-port", 0, "Prometheus metrics listen port")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath != "" {
		if err := loadYAMLFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store-path":
			cfg.StorePath = storePath
		case "log-level":
			if lvl, ok := parseLevelFlag(logLevel); ok {
				cfg.LogLevel = lvl
			}
		case "enable-metrics":
			cfg.EnableMetrics = enableMetrics
		case "metrics-port":
			cfg.MetricsPort = metricsPort
		}
	})

	cfg.Normalize()
	return cfg, nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func parseLevelFlag(s string) (logx.LogLevel, bool) {
	switch s {
	case "debug":
		return logx.LogLevelDebug, true
	case "info":
		return logx.LogLevelInfo, true
	case "warn", "warning":
		return logx.LogLevelWarn, true
	case "error":
		return logx.LogLevelError, true
	default:
		return logx.LogLevelInfo, false
	}
}

// Normalize fills in any zero-valued fields left over after YAML/flag
// loading with the journal core's own defaults, so a partially specified
// config file still produces a usable Config.
func (c *Config) Normalize() {
	def := Default()
	if c.StorePath == "" {
		c.StorePath = def.StorePath
	}
	if c.FileHeaderSize <= 0 {
		c.FileHeaderSize = def.FileHeaderSize
	}
	if c.FileDataSize <= 0 {
		c.FileDataSize = def.FileDataSize
	}
	if c.CachedFileMaxCount <= 0 {
		c.CachedFileMaxCount = def.CachedFileMaxCount
	}
	if c.MetricsPort <= 0 {
		c.MetricsPort = def.MetricsPort
	}
}

// overrideEnvString/Int/Bool mirror the teacher's env-fallback helpers
// for values that may also be supplied via environment variables rather
// than flags or YAML (used by cmd/journalctl for container deployments).
func overrideEnvString(val *string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*val = v
	}
}

func overrideEnvInt(val *int, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*val = util.ParseInt(v, *val)
	}
}

func overrideEnvBool(val *bool, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*val = util.ParseBool(v, *val)
	}
}

// ApplyEnvOverrides lets container deployments override store path,
// metrics port, and metrics enablement via environment variables without
// touching the YAML file or CLI flags.
func (c *Config) ApplyEnvOverrides() {
	overrideEnvString(&c.StorePath, "JOURNAL_STORE_PATH")
	overrideEnvInt(&c.MetricsPort, "JOURNAL_METRICS_PORT")
	overrideEnvBool(&c.EnableMetrics, "JOURNAL_ENABLE_METRICS")
}
