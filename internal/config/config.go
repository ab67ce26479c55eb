package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, loaded from REFPAY_* variables.
type Config struct {
	HTTPAddr     string `env:"REFPAY_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr     string `env:"REFPAY_GRPC_ADDR" envDefault:""`
	PostgresDSN  string `env:"REFPAY_PG_DSN" envDefault:""`
	RateBurst    int    `env:"REFPAY_RATE_BURST" envDefault:"20"`
	RatePerSec   int    `env:"REFPAY_RATE_PER_SEC" envDefault:"10"`
	MaxBodyBytes int64  `env:"REFPAY_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RateBurst <= 0 || cfg.RatePerSec <= 0 {
		return Config{}, fmt.Errorf("rate limit knobs must be positive")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("max body bytes must be positive")
	}
	return cfg, nil
}
