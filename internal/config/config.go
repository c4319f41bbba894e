// Package config reads process settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sankeerth95/rlpy/internal/storage"
)

// DefaultEnvFiles are tried in order by LoadDotEnv when no paths are given.
var DefaultEnvFiles = []string{".env", "../.env", "../../.env"}

type Config struct {
	// Store falls back to storage.DefaultStoreKind when empty.
	Store      string `env:"RLPY_STORE"`
	DBPath     string `env:"RLPY_DB_PATH" envDefault:"rlpy.db"`
	ExportsDir string `env:"RLPY_EXPORTS_DIR" envDefault:"exports"`
	Seed       uint64 `env:"RLPY_SEED" envDefault:"1"`
	Workers    int    `env:"RLPY_WORKERS" envDefault:"1"`
	Episodes   int    `env:"RLPY_EPISODES" envDefault:"10"`
	Integrator string `env:"RLPY_INTEGRATOR"`
}

// ParseEnv fills target's env-tagged fields.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv loads the first readable file of paths into the environment
// without overriding variables that are already set. It returns the loaded
// path, or "" when none could be read.
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Store == "" {
		cfg.Store = storage.DefaultStoreKind()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store)
	}
	if c.Store == "sqlite" && c.DBPath == "" {
		return errors.New("sqlite store requires RLPY_DB_PATH")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Episodes < 1 {
		return fmt.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	return nil
}
