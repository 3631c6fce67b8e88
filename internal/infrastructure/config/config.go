package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	RPC       RPCConfig
	Device    DeviceConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Shutdown  ShutdownConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// RPCConfig holds gRPC server configuration.
type RPCConfig struct {
	Address string `envconfig:"RPC_ADDR" default:"0.0.0.0:50061"`
	Enabled bool   `envconfig:"RPC_ENABLED" default:"true"`
}

// DeviceConfig describes the device and its aliases.
type DeviceConfig struct {
	Name      string   `envconfig:"DEVICE_NAME" default:"gate"`
	Capacity  int      `envconfig:"DEVICE_CAPACITY" default:"4096"`
	Endpoints []string `envconfig:"DEVICE_ENDPOINTS" default:"gate0,gate1"`
	// Table optionally points at a YAML or TOML file that replaces
	// Name, Capacity and Endpoints.
	Table string `envconfig:"DEVICE_TABLE"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ShutdownConfig bounds graceful shutdown.
type ShutdownConfig struct {
	Timeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		RPC: RPCConfig{
			Address: "0.0.0.0:50061",
			Enabled: true,
		},
		Device: DeviceConfig{
			Name:      "gate",
			Capacity:  4096,
			Endpoints: []string{"gate0", "gate1"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Shutdown: ShutdownConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Device.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("device capacity must be positive, got %d", c.Device.Capacity))
	}
	if c.Device.Table == "" && len(c.Device.Endpoints) == 0 {
		errs = append(errs, errors.New("at least one device endpoint is required"))
	}
	if c.RPC.Enabled && c.RPC.Address == "" {
		errs = append(errs, errors.New("rpc address is required when rpc is enabled"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate limit rps must be positive when enabled"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DeviceEndpoints turns the configured alias names into endpoints, using
// the list position as the minor number.
func (d DeviceConfig) DeviceEndpoints() []chardev.Endpoint {
	eps := make([]chardev.Endpoint, 0, len(d.Endpoints))
	for _, name := range d.Endpoints {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		eps = append(eps, chardev.Endpoint{Name: name, Minor: len(eps)})
	}
	return eps
}
