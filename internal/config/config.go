// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers an optional .env file, an optional YAML file and ECOTRACK_* env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// AllowedOrigins is a comma-separated list of CORS origins; "*" allows any.
	AllowedOrigins string `koanf:"allowed_origins"`

	// JournalCapacity bounds how many adjustments the history keeps.
	JournalCapacity int `koanf:"journal_capacity"`

	// QueueSize bounds the in-memory adjustment queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of journal workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxHistoryLimit caps GET /api/gamification/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// UpdateRatePerSec and UpdateBurst configure the per-client token bucket
	// guarding POST /api/gamification/update.
	UpdateRatePerSec float64 `koanf:"update_rate_per_sec"`
	UpdateBurst      int     `koanf:"update_burst"`

	// IdempotencyCacheSize bounds how many Idempotency-Key results are
	// remembered; zero disables the header.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// Metrics naming. MetricsLabels is a comma-separated list of key=value
	// constant labels attached to every series.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsLabels    string `koanf:"metrics_labels"`

	// WeeklyJitter is the +/- fraction applied per synthetic day.
	WeeklyJitter float64 `koanf:"weekly_jitter"`

	// Mock baselines reported by the footprint providers.
	MockEmailCount float64 `koanf:"mock_email_count"`
	MockStorageGB  float64 `koanf:"mock_storage_gb"`
	MockVideoHours float64 `koanf:"mock_video_hours"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":5000",
		AllowedOrigins:       "*",
		JournalCapacity:      1000,
		QueueSize:            1024,
		WorkerCount:          2,
		MaxHistoryLimit:      100,
		UpdateRatePerSec:     20,
		UpdateBurst:          40,
		IdempotencyCacheSize: 10000,
		MetricsNamespace:     "ecotrack",
		MetricsSubsystem:     "api",
		WeeklyJitter:         0.15,
		MockEmailCount:       42,
		MockStorageGB:        12.5,
		MockVideoHours:       3.2,
	}
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Labels parses MetricsLabels into a map. Entries without "=" are skipped.
func (c *Config) Labels() map[string]string {
	out := make(map[string]string)
	for _, p := range strings.Split(c.MetricsLabels, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
