// Package config loads the engine configuration from defaults, an optional
// YAML file, KIOKU_-prefixed environment variables and command-line flags,
// in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/kioku-srs/kioku/internal/review"
)

// StorageConfig selects and locates the card repository backend.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `koanf:"backend" validate:"oneof=file sqlite"`
	// Path is the JSON file or SQLite database path.
	Path string `koanf:"path" validate:"required"`
	// FlushInterval is how often buffered failed writes are retried.
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`
}

// SessionConfig holds the session policy knobs.
type SessionConfig struct {
	Lives           int  `koanf:"lives" validate:"gt=0"`
	RequeueDistance uint `koanf:"requeue_distance" validate:"gt=0"`
	DistractorCount int  `koanf:"distractor_count" validate:"gt=0"`
}

// Config is the full engine configuration.
type Config struct {
	Storage  StorageConfig     `koanf:"storage"`
	Review   review.Parameters `koanf:"review"`
	Session  SessionConfig     `koanf:"session"`
	LogLevel string            `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend:       "file",
			Path:          "./kioku.json",
			FlushInterval: 30 * time.Second,
		},
		Review: review.DefaultParameters(),
		Session: SessionConfig{
			Lives:           3,
			RequeueDistance: 3,
			DistractorCount: 3,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty (no config file); flags
// may be nil. Flags override env, env overrides the file, the file
// overrides defaults.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	// cfg starts from defaults; loaded keys overwrite individual fields.
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Double underscore separates sections so single underscores survive
	// in key names: KIOKU_STORAGE__PATH=/x maps to storage.path,
	// KIOKU_LOG_LEVEL to log_level.
	if err := k.Load(env.Provider("KIOKU_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "KIOKU_")), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
