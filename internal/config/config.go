package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver      string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:"croma_products_normalized.db"`
	ProductsTable string `envconfig:"PRODUCTS_TABLE" default:"products"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"24"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"200"`

	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"60s"`

	MetricsPort        string `envconfig:"METRICS_PORT" default:"9090"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func Load() (*Config, error) {
	// .env at the project root first, then the working directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the catalog cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "pgx", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be provided")
	}
	if !tableName.MatchString(c.ProductsTable) {
		return fmt.Errorf("config: invalid PRODUCTS_TABLE %q", c.ProductsTable)
	}
	if c.MaxPageSize < 1 {
		return errors.New("config: MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("config: DEFAULT_PAGE_SIZE must be within 1..%d", c.MaxPageSize)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
