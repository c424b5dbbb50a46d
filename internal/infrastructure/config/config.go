package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is read once at startup from the environment, optionally seeded by .env.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	CORSAllowedOrigins string  `mapstructure:"CORS_ALLOWED_ORIGINS"`
	SendRatePerMinute  float64 `mapstructure:"SEND_RATE_PER_MINUTE"`
	SendRateBurst      int     `mapstructure:"SEND_RATE_BURST"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DBURL       string `mapstructure:"DB_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	DirectoryURL      string        `mapstructure:"DIRECTORY_URL"`
	DirectoryCacheTTL time.Duration `mapstructure:"DIRECTORY_CACHE_TTL"`
	PushGatewayURL    string        `mapstructure:"PUSH_GATEWAY_URL"`

	AsynqConcurrency int    `mapstructure:"ASYNQ_CONCURRENCY"`
	AsynqQueues      string `mapstructure:"ASYNQ_QUEUES"`
}

var defaults = map[string]any{
	"APP_ENV":              "development",
	"LOG_LEVEL":            "info",
	"HTTP_ADDR":            ":8080",
	"CORS_ALLOWED_ORIGINS": "*",
	"SEND_RATE_PER_MINUTE": 60.0,
	"SEND_RATE_BURST":      10,
	"STORE_DRIVER":         StoreMemory,
	"DB_URL":               "",
	"DB_MAX_CONNS":         8,
	"REDIS_URL":            "",
	"JWT_SECRET":           "",
	"JWT_ISSUER":           "guru-chat",
	"DIRECTORY_URL":        "",
	"DIRECTORY_CACHE_TTL":  10 * time.Minute,
	"PUSH_GATEWAY_URL":     "",
	"ASYNQ_CONCURRENCY":    10,
	"ASYNQ_QUEUES":         "notifications=6,default=1",
}

// Load reads .env from the working directory when present, then the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}
	return fromEnv(viper.New())
}

func fromEnv(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DBURL == "" {
			errs = append(errs, errors.New("DB_URL is required with STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.SendRatePerMinute <= 0 || c.SendRateBurst <= 0 {
		errs = append(errs, errors.New("SEND_RATE_PER_MINUTE and SEND_RATE_BURST must be positive"))
	}
	if c.DirectoryCacheTTL < 0 {
		errs = append(errs, errors.New("DIRECTORY_CACHE_TTL must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateAPI checks what the HTTP server needs on top of Validate.
func (c *Config) ValidateAPI() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	return nil
}

// ValidateWorker checks what the queue worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	if c.RedisURL == "" {
		return errors.New("config: REDIS_URL is required by the worker")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
