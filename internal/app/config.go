package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	CompanyName       string        `envconfig:"COMPANY_NAME" default:""`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	UploadTTL      time.Duration `envconfig:"UPLOAD_TTL" default:"24h"`
	UploadMaxBytes int64         `envconfig:"UPLOAD_MAX_BYTES" default:"20971520"`

	LinkedWorkbook    string `envconfig:"LINKED_WORKBOOK" default:""`
	LinkedRefreshCron string `envconfig:"LINKED_REFRESH_CRON" default:"*/15 * * * *"`
	SnapshotDir       string `envconfig:"SNAPSHOT_DIR" default:""`
	SnapshotCron      string `envconfig:"SNAPSHOT_CRON" default:"0 1 * * *"`
	DateDayFirst      bool   `envconfig:"DATE_DAY_FIRST" default:"false"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
}

// LoadConfig reads configuration from a .env file, when present, and the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.UploadMaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	if c.UploadTTL <= 0 {
		return fmt.Errorf("upload ttl must be positive, got %s", c.UploadTTL)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", c.CacheTTL)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
