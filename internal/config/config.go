package config

import (
	"errors"
	"strings"
	"time"

	"github.com/jinzhu/configor"
	"github.com/robfig/cron/v3"
)

// devSessionSecret signs session cookies outside production when no secret is configured.
const devSessionSecret = "discordin-dev-secret"

// Config holds the application configuration.
type Config struct {
	AppConfig     AppConfig
	HTTPConfig    HTTPConfig
	DBConfig      DBConfig
	SessionConfig SessionConfig
	EventConfig   EventConfig
}

type AppConfig struct {
	Name       string `default:"DiscordIn"`
	Env        string `default:"development" env:"APP_ENV"`
	LogLevel   string `default:"info" env:"LOG_LEVEL"`
	MinimumAge int    `default:"15" env:"MINIMUM_AGE"`
}

type HTTPConfig struct {
	Port           int    `default:"8080" env:"PORT"`
	AllowedOrigins string `default:"http://localhost:3000" env:"ALLOWED_ORIGINS"`
}

type DBConfig struct {
	Path string `default:"./discordin.db" env:"DATABASE_PATH"`
}

type SessionConfig struct {
	Secret     string `env:"SESSION_SECRET"`
	TTLMinutes int    `default:"60" env:"SESSION_TTL_MINUTES"`
}

type EventConfig struct {
	RetentionDays int    `default:"30" env:"EVENT_RETENTION_DAYS"`
	PruneSchedule string `default:"0 3 * * *" env:"EVENT_PRUNE_SCHEDULE"`
}

// Load reads the optional configuration files, applies defaults and
// environment overrides, then validates the result.
func Load(files ...string) (*Config, error) {
	cfg := &Config{}
	if err := configor.New(&configor.Config{Silent: true}).Load(cfg, files...); err != nil {
		return nil, err
	}

	if cfg.SessionConfig.Secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("SESSION_SECRET must be set in production")
		}
		cfg.SessionConfig.Secret = devSessionSecret
	}
	if cfg.SessionConfig.TTLMinutes <= 0 {
		return nil, errors.New("SESSION_TTL_MINUTES must be positive")
	}
	if cfg.AppConfig.MinimumAge < 0 {
		return nil, errors.New("MINIMUM_AGE cannot be negative")
	}
	if _, err := cron.ParseStandard(cfg.EventConfig.PruneSchedule); err != nil {
		return nil, errors.New("EVENT_PRUNE_SCHEDULE is not a valid cron expression: " + err.Error())
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppConfig.Env == "production"
}

// UsesDevSecret reports whether session cookies are signed with the built-in development secret.
func (c *Config) UsesDevSecret() bool {
	return c.SessionConfig.Secret == devSessionSecret
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionConfig.TTLMinutes) * time.Minute
}

func (c *Config) EventRetention() time.Duration {
	return time.Duration(c.EventConfig.RetentionDays) * 24 * time.Hour
}

// Origins splits the comma separated CORS origin list.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.HTTPConfig.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
