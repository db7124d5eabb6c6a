package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the panel service.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppTimezone       string        `envconfig:"APP_TIMEZONE" default:"America/Argentina/Buenos_Aires"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	BackendURL          string        `envconfig:"BACKEND_URL" default:"http://localhost:3000"`
	BackendTimeout      time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	BackendServiceToken string        `envconfig:"BACKEND_SERVICE_TOKEN"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	// PGDSN is optional; payout batches are only audited when it is set.
	PGDSN string `envconfig:"PG_DSN"`

	AdminAlertPoll      time.Duration `envconfig:"ADMIN_ALERT_POLL" default:"15s"`
	SupervisorAlertPoll time.Duration `envconfig:"SUPERVISOR_ALERT_POLL" default:"20s"`
	DashboardCacheTTL   time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"5m"`
	PayoutStateTTL      time.Duration `envconfig:"PAYOUT_STATE_TTL" default:"2h"`
}

// LoadConfig reads configuration from a local .env file (when present) and
// environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("backend url must be provided")
	}
	if _, err := time.LoadLocation(cfg.AppTimezone); err != nil {
		return nil, fmt.Errorf("app timezone: %w", err)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves the panel timezone used for day boundaries and display.
// It falls back to UTC when the zone database is unavailable.
func (c *Config) Location() *time.Location {
	if c == nil || c.AppTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
