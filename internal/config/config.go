// Package config loads the core's configuration from the environment.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime configuration of the offline data core. All
// values come from RESTRO_* environment variables, optionally seeded from a
// .env file.
type Config struct {
	DataDir        string        `envconfig:"DATA_DIR" default:"./data"`
	RemoteBaseURL  string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:8090"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"30s"`
	StatusInterval time.Duration `envconfig:"STATUS_INTERVAL" default:"5s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("restro", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
