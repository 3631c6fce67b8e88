// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// The device layer logs every reader that parks and wakes and every writer
// that signals, tagged with session, endpoint and actor fields, so the log
// reads as a trace of each rendezvous.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Device started", zap.Int("capacity", 4096))
//	logger.Error("Endpoint registration failed", zap.Error(err))
package logging
