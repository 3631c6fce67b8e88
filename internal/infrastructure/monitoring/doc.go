/*
Package monitoring provides Prometheus metrics for the gatedev server.

# Overview

Metrics are registered on a registry owned by each Metrics instance and
served by Handler. Metrics also implements chardev.Recorder, so the device
reports session, byte, signal and interruption counts directly.

# Usage

	metrics := monitoring.NewMetrics()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	dev, err := chardev.Start(ns, chardev.Options{Recorder: metrics})

# Metrics

  - gatedev_http_requests_total, gatedev_http_request_duration_seconds
  - gatedev_sessions_active, gatedev_sessions_opened_total
  - gatedev_bytes_read_total, gatedev_bytes_written_total
  - gatedev_gate_signals_total, gatedev_gate_readers_released_total
  - gatedev_gate_waits_interrupted_total
  - gatedev_rpc_calls_total, gatedev_rpc_duration_seconds
  - gatedev_ws_connections, gatedev_ws_messages_total
  - gatedev_uptime_seconds
*/
package monitoring
