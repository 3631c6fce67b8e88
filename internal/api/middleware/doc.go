// Package middleware provides the HTTP middleware stack for the device server.
//
// Middleware stack includes:
//   - CORS: Cross-origin access for browser dashboards, exposing X-Bytes-Read
//   - RateLimit: Per-IP token buckets with idle client eviction
//   - Logger: One zap line per request
//   - Recovery: Panic recovery with a JSON error envelope
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
