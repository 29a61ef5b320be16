package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment conventions.
const (
	EnvPrefix     = "RINGSIDE_"
	EnvConfigFile = "RINGSIDE_CONFIG"
	envNesting    = "__"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RINGSIDE_CONFIG is set
//  3. env (prefix RINGSIDE_, "__" separates nested keys)
//
// RINGSIDE_SCORING__CONTROL__GAP_RESET_MS=20000 sets scoring.control.gap_reset_ms.
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps RINGSIDE_STORAGE__DSN to storage.dsn. Single underscores stay part of the key.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == strings.TrimPrefix(EnvConfigFile, EnvPrefix) {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), envNesting, ".")
}
