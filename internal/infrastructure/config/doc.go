// Package config provides 12-factor configuration management for the
// gatedev server.
//
// Configuration is loaded from environment variables with defaults. CLI
// flags in cmd/server override environment variables.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - RPC: gRPC listener settings
//   - Device: device name, buffer capacity, endpoint aliases, optional table file
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - Shutdown: graceful shutdown timeout
//
// Environment Variables:
//   - PORT, HOST, RPC_ADDR, RPC_ENABLED
//   - DEVICE_NAME, DEVICE_CAPACITY, DEVICE_ENDPOINTS, DEVICE_TABLE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SHUTDOWN_TIMEOUT
//
// A device table file lists the aliases explicitly:
//
//	# gate.yaml
//	name: completion
//	capacity: 4096
//	endpoints:
//	  - name: gate0
//	    minor: 0
//	  - name: gate1
//	    minor: 1
package config
