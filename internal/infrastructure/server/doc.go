// Package server assembles the gatedev process: logger, metrics, tracer,
// the device and its namespace, and the HTTP and gRPC servers in front of
// them.
//
// Shutdown stops the device before draining the transports, so a reader
// parked on the gate is answered with a shutdown error instead of holding
// the HTTP server open until the drain timeout.
package server
