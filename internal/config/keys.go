package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// SettingSource represents where an effective setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective setting.
type SettingStatus struct {
	Key    string        `json:"key"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
	EnvVar string        `json:"env_var"`
}

// Status returns every known setting of cfg, sorted by key.
func Status(cfg *Config) []SettingStatus {
	values := map[string]any{
		"legend.type":              cfg.Legend.Type,
		"legend.number_of_items":   cfg.Legend.NumberOfItems,
		"legend.color":             cfg.Legend.Color,
		"legend.cache_enabled":     cfg.Legend.CacheEnabled,
		"legend.cache_ttl":         cfg.Legend.CacheTTL,
		"legend.cache_max_entries": cfg.Legend.CacheMaxEntries,
		"databite.precision":       cfg.DataBite.Precision,
		"batch.concurrency":        cfg.Batch.Concurrency,
		"api.host":                 cfg.API.Host,
		"api.port":                 cfg.API.Port,
		"api.cors_origins":         cfg.API.CORSOrigins,
		"logging.level":            cfg.Logging.Level,
		"logging.format":           cfg.Logging.Format,
	}

	out := make([]SettingStatus, 0, len(values))
	for key, val := range values {
		out = append(out, checkSetting(key, val))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// checkSetting works out whether a value came from the environment, a
// config file, or the built-in defaults.
func checkSetting(key string, value any) SettingStatus {
	status := SettingStatus{
		Key:    key,
		Value:  fmt.Sprint(value),
		EnvVar: EnvVar(key),
	}

	switch {
	case os.Getenv(status.EnvVar) != "":
		status.Source = SourceEnv
	case fmt.Sprint(defaults[key]) == status.Value:
		status.Source = SourceDefault
	default:
		status.Source = SourceConfig
	}
	return status
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
