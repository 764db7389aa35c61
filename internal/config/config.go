package config

import (
	"context"
	"fmt"
	"time"

	"shopseq/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Allocator AllocatorConfig
	Server    ServerConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string `env:"DATABASE_URL, required" validate:"required"`
	Driver       string `env:"DB_DRIVER, default=postgres" validate:"oneof=postgres sqlite"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS, default=20" validate:"gte=1"`
}

// AllocatorConfig holds identifier allocation settings
type AllocatorConfig struct {
	// LockTimeout bounds how long Allocate waits for the series lock.
	LockTimeout       time.Duration `env:"LOCK_TIMEOUT, default=5s" validate:"gt=0"`
	Strategy          string        `env:"SEQUENCE_STRATEGY, default=counter" validate:"oneof=counter scan"`
	Width             int           `env:"SEQUENCE_WIDTH, default=4" validate:"gte=1,lte=18"`
	TokenMaxAttempts  int           `env:"TOKEN_MAX_ATTEMPTS, default=10" validate:"gte=1"`
	TokenBytes        int           `env:"TOKEN_BYTES, default=4" validate:"gte=1,lte=32"`
	CreateMaxAttempts int           `env:"CREATE_MAX_ATTEMPTS, default=3" validate:"gte=1"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `env:"PORT, default=8080" validate:"required"`
}

// LoggingConfig holds logrus settings
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL, default=info" validate:"oneof=trace debug info warn warning error"`
	Format string `env:"LOG_FORMAT, default=text" validate:"oneof=text json"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED, default=false"`
	Endpoint string `env:"OTEL_ENDPOINT"`
	Service  string `env:"OTEL_SERVICE_NAME, default=shopseq"`
}

// Load reads configuration from environment variables and validates it
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadFromMap reads configuration from an explicit variable set
func LoadFromMap(ctx context.Context, vars map[string]string) (*Config, error) {
	return load(ctx, envconfig.MapLookuper(vars))
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load configuration")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return cfg, nil
}

var validate = validator.New()

func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// String returns a representation of the config without the database DSN
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Driver: %s, MaxOpenConns: %d, LockTimeout: %s, Strategy: %s, Width: %d, TokenMaxAttempts: %d, TokenBytes: %d, Port: %s, LogLevel: %s}",
		c.Database.Driver,
		c.Database.MaxOpenConns,
		c.Allocator.LockTimeout,
		c.Allocator.Strategy,
		c.Allocator.Width,
		c.Allocator.TokenMaxAttempts,
		c.Allocator.TokenBytes,
		c.Server.Port,
		c.Logging.Level,
	)
}
