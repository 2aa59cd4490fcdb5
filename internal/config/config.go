// Package config handles configuration loading for openviz.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. OPENVIZ_LEGEND_COLOR.
const EnvPrefix = "OPENVIZ"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete application configuration.
type Config struct {
	Legend   LegendDefaults   `mapstructure:"legend"   yaml:"legend"`
	DataBite DataBiteDefaults `mapstructure:"databite" yaml:"databite"`
	Batch    BatchConfig      `mapstructure:"batch"    yaml:"batch"`
	API      APIConfig        `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig    `mapstructure:"logging"  yaml:"logging"`
}

// LegendDefaults fill legend settings a widget or command leaves unset.
type LegendDefaults struct {
	Type            string `mapstructure:"type"              yaml:"type"` // "equalnumber", "equalinterval", "category"
	NumberOfItems   int    `mapstructure:"number_of_items"   yaml:"number_of_items"`
	Color           string `mapstructure:"color"             yaml:"color"`
	CacheEnabled    bool   `mapstructure:"cache_enabled"     yaml:"cache_enabled"`
	CacheTTL        int    `mapstructure:"cache_ttl"         yaml:"cache_ttl"` // seconds
	CacheMaxEntries int    `mapstructure:"cache_max_entries" yaml:"cache_max_entries"`
}

// CacheDuration returns CacheTTL as a time.Duration.
func (l LegendDefaults) CacheDuration() time.Duration {
	return time.Duration(l.CacheTTL) * time.Second
}

// DataBiteDefaults hold aggregator output settings.
type DataBiteDefaults struct {
	Precision int `mapstructure:"precision" yaml:"precision"` // -1 prints the natural number form
}

// BatchConfig controls concurrent widget evaluation.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns host:port for net/http.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "trace", "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// defaults is the single source for setDefaults and Status.
var defaults = map[string]any{
	"legend.type":              "equalnumber",
	"legend.number_of_items":   3,
	"legend.color":             "bluegreen",
	"legend.cache_enabled":     true,
	"legend.cache_ttl":         300, // 5 minutes
	"legend.cache_max_entries": 64,
	"databite.precision":       -1,
	"batch.concurrency":        4,
	"api.host":                 "127.0.0.1",
	"api.port":                 8080,
	"api.cors_origins":         []string{"*"},
	"logging.level":            "info",
	"logging.format":           "console",
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.openviz/config.yaml (home directory)
//  3. /etc/openviz/config.yaml (system)
//
// Environment variables override config file values.
// Format: OPENVIZ_<SECTION>_<KEY>, e.g., OPENVIZ_BATCH_CONCURRENCY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".openviz"))
	v.AddConfigPath("/etc/openviz")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the configuration with no file and no environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("%w: batch.concurrency must be at least 1, got %d", ErrInvalid, c.Batch.Concurrency)
	}
	if c.Legend.NumberOfItems < 1 || c.Legend.NumberOfItems > 9 {
		return fmt.Errorf("%w: legend.number_of_items must be between 1 and 9, got %d", ErrInvalid, c.Legend.NumberOfItems)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: api.port %d out of range", ErrInvalid, c.API.Port)
	}
	if c.Legend.CacheTTL < 0 {
		return fmt.Errorf("%w: legend.cache_ttl must not be negative", ErrInvalid)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
