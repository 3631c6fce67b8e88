package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())

	assert.Equal(t, "0.0.0.0:50061", cfg.RPC.Address)
	assert.True(t, cfg.RPC.Enabled)

	assert.Equal(t, "gate", cfg.Device.Name)
	assert.Equal(t, 4096, cfg.Device.Capacity)
	assert.Equal(t, []string{"gate0", "gate1"}, cfg.Device.Endpoints)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.Equal(t, 10*time.Second, cfg.Shutdown.Timeout)
	assert.NoError(t, cfg.Validate())
}

var envKeys = []string{
	"PORT", "HOST", "RPC_ADDR", "RPC_ENABLED",
	"DEVICE_NAME", "DEVICE_CAPACITY", "DEVICE_ENDPOINTS", "DEVICE_TABLE",
	"LOG_LEVEL", "LOG_DEV",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_ENABLED",
	"SHUTDOWN_TIMEOUT",
}

// clearEnv unsets every variable the config reads and restores them when
// the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadMatchesDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"RPC_ADDR":           "127.0.0.1:7000",
		"RPC_ENABLED":        "false",
		"DEVICE_NAME":        "completion",
		"DEVICE_CAPACITY":    "64",
		"DEVICE_ENDPOINTS":   "a,b,c",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
		"SHUTDOWN_TIMEOUT":   "3s",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, "127.0.0.1:7000", cfg.RPC.Address)
	assert.False(t, cfg.RPC.Enabled)
	assert.Equal(t, "completion", cfg.Device.Name)
	assert.Equal(t, 64, cfg.Device.Capacity)
	assert.Equal(t, []chardev.Endpoint{
		{Name: "a", Minor: 0},
		{Name: "b", Minor: 1},
		{Name: "c", Minor: 2},
	}, cfg.Device.DeviceEndpoints())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Shutdown.Timeout)
}

func TestLoadInvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEVICE_CAPACITY", "lots")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}

func TestDeviceEndpointsSkipsBlanks(t *testing.T) {
	d := DeviceConfig{Endpoints: []string{" gate0 ", "", "gate1"}}
	assert.Equal(t, []chardev.Endpoint{
		{Name: "gate0", Minor: 0},
		{Name: "gate1", Minor: 1},
	}, d.DeviceEndpoints())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port"},
		{name: "zero capacity", mutate: func(c *Config) { c.Device.Capacity = 0 }, wantErr: "capacity"},
		{name: "no endpoints", mutate: func(c *Config) { c.Device.Endpoints = nil }, wantErr: "endpoint"},
		{name: "table replaces endpoints", mutate: func(c *Config) {
			c.Device.Endpoints = nil
			c.Device.Table = "gate.yaml"
		}},
		{name: "rpc without address", mutate: func(c *Config) { c.RPC.Address = "" }, wantErr: "rpc address"},
		{name: "rpc disabled without address", mutate: func(c *Config) {
			c.RPC.Address = ""
			c.RPC.Enabled = false
		}},
		{name: "bad rate limit", mutate: func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }, wantErr: "rps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
