package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings, read from the environment with an
// AGENTMETRICS_ prefix.
type Config struct {
	DatabasePath string `envconfig:"DB_PATH"`
	Source       string `envconfig:"SOURCE" default:"autopilot"`

	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4317"`
	OTELInsecure bool   `envconfig:"OTEL_INSECURE" default:"true"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("agentmetrics", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaultDatabasePath()
	}
	return &cfg, nil
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agentmetrics.db"
	}
	return filepath.Join(home, ".agentmetrics", "metrics.db")
}
