package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DataDir         string        `env:"DATA_DIR" envDefault:"."`
	DatabaseURL     string        `env:"DATABASE_URL"`
	LogMode         string        `env:"LOG_MODE" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"fitspace"`

	// Advisor settings. The token is the bearer credential for the
	// inference endpoint and must never be logged.
	AdvisorToken    string        `env:"GITHUB_TOKEN,required"`
	AdvisorEndpoint string        `env:"ADVISOR_ENDPOINT" envDefault:"https://models.github.ai/inference"`
	AdvisorModel    string        `env:"ADVISOR_MODEL" envDefault:"openai/gpt-4"`
	AdvisorTimeout  time.Duration `env:"ADVISOR_TIMEOUT" envDefault:"30s"`
}

func Load() (*Config, error) {
	// .env is optional; in production the variables are usually set directly
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.AdvisorTimeout <= 0 {
		return nil, fmt.Errorf("ADVISOR_TIMEOUT must be positive, got %s", cfg.AdvisorTimeout)
	}
	return cfg, nil
}

// BoltPath is where the embedded store lives when no DATABASE_URL is set.
func (c *Config) BoltPath() string {
	return filepath.Join(c.DataDir, "fitspace.db")
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
