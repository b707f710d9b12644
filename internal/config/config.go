package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	// Config is the top-level application configuration. Defaults are set
	// programmatically, then overridden by the yaml file, then by env.
	Config struct {
		App      `yaml:"app"`
		Log      `yaml:"logger"`
		API      `yaml:"api"`
		Limits   `yaml:"limits"`
		Provider `yaml:"provider"`
	}

	// App identifies the running binary.
	App struct {
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version" env:"APP_VERSION"`
	}

	// Log configures logging verbosity.
	Log struct {
		Level string `yaml:"log-level" env:"LOG_LEVEL"`
	}

	// API configures the health/readiness HTTP endpoint.
	API struct {
		HTTPAddr string `yaml:"http-addr" env:"HTTP_ADDR"`
	}

	// Limits configures registry dispatch throttling. RatePerSecond 0
	// disables the limiter.
	Limits struct {
		RatePerSecond float64 `yaml:"rate-per-second" env:"RATE_PER_SECOND"`
		Burst         int     `yaml:"rate-burst" env:"RATE_BURST"`
	}

	// Provider configures resource-provider behavior.
	Provider struct {
		Namespace     string `yaml:"namespace" env:"PROVIDER_NAMESPACE"`
		DefaultActor  string `yaml:"default-actor" env:"PROVIDER_DEFAULT_ACTOR"`
		RetainDeleted bool   `yaml:"retain-deleted" env:"PROVIDER_RETAIN_DELETED"`
	}
)

// NewConfig loads configuration from path (optional) and the environment.
func NewConfig(path string) (*Config, error) {
	cfg := &Config{}

	cfg.App.Name = "itl-resource-backend"
	cfg.App.Version = "v1.0.0"
	cfg.Log.Level = "info"
	cfg.API.HTTPAddr = ":8080"
	cfg.Limits.RatePerSecond = 0
	cfg.Limits.Burst = 1
	cfg.Provider.Namespace = "ITL"
	cfg.Provider.DefaultActor = "system"

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate sanity-checks the configuration.
func (c *Config) Validate() error {
	if c.API.HTTPAddr == "" {
		return fmt.Errorf("http address is required")
	}
	if c.Limits.RatePerSecond < 0 {
		return fmt.Errorf("rate-per-second must not be negative")
	}
	if c.Limits.RatePerSecond > 0 && c.Limits.Burst < 1 {
		return fmt.Errorf("rate-burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}
