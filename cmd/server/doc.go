// Package main is the entry point for the gatedev server.
//
// gatedev serves one broadcast device under several endpoint aliases. A
// read parks until the next write to any alias, then every parked reader
// gets a copy of the shared buffer.
//
// The server provides:
//   - REST API for sessions, reads and writes
//   - WebSocket stream of releases at /stream/:name
//   - gRPC service gatedev.v1.Device
//   - Prometheus metrics at /metrics
//
// Configuration:
//   - Environment variables (PORT, RPC_ADDR, DEVICE_ENDPOINTS, ...)
//   - CLI flags (override env vars)
//   - Optional device table file listing aliases and minors
//
// Usage:
//
//	# Two aliases, default 4096-byte buffer
//	./server -port 8000 -rpc 0.0.0.0:50061
//
//	# Aliases from a table, development logging
//	./server -table devices.yaml -dev
//
// Signals:
//   - SIGINT, SIGTERM: stop the device, release parked readers, drain
package main
