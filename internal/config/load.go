package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load reads an optional .env file into the process environment and parses Config from it.
func Load(files ...string) (*Config, error) {
	// a missing .env is fine in prod
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.URL == "" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("DATABASE_URL is required for driver %q", cfg.Database.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	return cfg, nil
}
