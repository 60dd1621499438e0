package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/ecotrack/pkg/metrics"
)

const (
	envPrefix  = "ECOTRACK_"
	envConfig  = "ECOTRACK_CONFIG"
	envDotFile = "ECOTRACK_DOTENV"
	dotEnvFile = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ECOTRACK_CONFIG is set
//  3. env (prefix ECOTRACK_), including values from an optional .env file
//     (ECOTRACK_DOTENV overrides its path). Variables already set in the
//     process environment win over the .env file.
func Load(_ context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ECOTRACK_QUEUE_SIZE -> queue_size (flat keys matching koanf tags).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validLabels rejects entries without "=", invalid or reserved names.
func (c *Config) validLabels() bool {
	for _, p := range strings.Split(c.MetricsLabels, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		k, _, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || !metricName.MatchString(k) || strings.HasPrefix(k, "__") || metrics.IsReservedLabel(k) {
			return false
		}
	}
	return true
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.JournalCapacity < 1:
		return fmt.Errorf("%w: journal_capacity must be positive", ErrInvalidConfig)
	case c.WeeklyJitter < 0 || c.WeeklyJitter >= 1:
		return fmt.Errorf("%w: weekly_jitter must be in [0, 1)", ErrInvalidConfig)
	case c.UpdateRatePerSec <= 0 || c.UpdateBurst < 1:
		return fmt.Errorf("%w: update rate and burst must be positive", ErrInvalidConfig)
	case c.IdempotencyCacheSize < 0:
		return fmt.Errorf("%w: idempotency_cache_size must not be negative", ErrInvalidConfig)
	case !metricName.MatchString(c.MetricsNamespace) || !metricName.MatchString(c.MetricsSubsystem):
		return fmt.Errorf("%w: metrics_namespace and metrics_subsystem must be valid metric name parts", ErrInvalidConfig)
	case !c.validLabels():
		return fmt.Errorf("%w: metrics_labels must be key=value pairs with valid label names", ErrInvalidConfig)
	case c.MockEmailCount < 0 || c.MockStorageGB < 0 || c.MockVideoHours < 0:
		return fmt.Errorf("%w: mock readings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// loadDotEnv exports variables from the .env file when it exists. A missing
// default file is not an error; a missing explicitly configured one is.
func loadDotEnv() error {
	path, explicit := os.LookupEnv(envDotFile)
	if !explicit || path == "" {
		path = dotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}
