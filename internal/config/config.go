package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/playperu/beachclub/internal/alerts"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/beachclub.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	RedisURL string     `env:"REDIS_URL"`
	AMQPURL  string     `env:"AMQP_URL"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`
	SeedDemo bool       `env:"SEED_DEMO" envDefault:"true"`

	StaffUsername string `env:"STAFF_USERNAME" envDefault:"staff"`
	StaffPassword string `env:"STAFF_PASSWORD" envDefault:"changeme"`

	// BoardURL is the backend boardwatch connects to.
	BoardURL string `env:"BOARD_URL" envDefault:"http://localhost:8080"`

	Timezone     string        `env:"CLUB_TIMEZONE" envDefault:"Europe/Rome"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"30s"`

	NewOrderDelay       time.Duration `env:"NEW_ORDER_DELAY" envDefault:"10m"`
	PreparingOrderDelay time.Duration `env:"PREPARING_ORDER_DELAY" envDefault:"20m"`
	ImminentWindow      time.Duration `env:"IMMINENT_WINDOW" envDefault:"30m"`
	LongOccupation      time.Duration `env:"LONG_OCCUPATION" envDefault:"90m"`
}

// Load reads .env from the working directory when present, then the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if err := cfg.validateThresholds(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Alert thresholds are compared against whole elapsed minutes.
func (c *Config) validateThresholds() error {
	for _, th := range []struct {
		name string
		d    time.Duration
	}{
		{"NEW_ORDER_DELAY", c.NewOrderDelay},
		{"PREPARING_ORDER_DELAY", c.PreparingOrderDelay},
		{"IMMINENT_WINDOW", c.ImminentWindow},
		{"LONG_OCCUPATION", c.LongOccupation},
	} {
		if th.d <= 0 || th.d%time.Minute != 0 {
			return fmt.Errorf("%s must be a positive whole number of minutes, got %s", th.name, th.d)
		}
	}
	return nil
}

// Location is the club's timezone. Reservation times are read in it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) AlertPolicy() alerts.Policy {
	return alerts.Policy{
		NewOrderDelay:  c.NewOrderDelay,
		PreparingDelay: c.PreparingOrderDelay,
		ImminentWindow: c.ImminentWindow,
		LongOccupation: c.LongOccupation,
	}
}
