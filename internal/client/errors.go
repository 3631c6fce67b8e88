package client

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

// ErrInvalidParameter is matched by a 400 answer that rejected a malformed
// parameter or body rather than an offset outside the buffer.
var ErrInvalidParameter = errors.New("invalid parameter")

// codeInvalidParameter is the envelope code the server sends with
// parameter errors.
const codeInvalidParameter = "invalid_parameter"

// APIError is a non-2xx answer from the device server. It matches the
// chardev sentinels and ErrInvalidParameter with errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func newAPIError(status int, code, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Code: code, Message: message, kind: kindOf(status, code)}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("device server: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

func kindOf(status int, code string) error {
	switch status {
	case http.StatusBadRequest:
		if code == codeInvalidParameter {
			return ErrInvalidParameter
		}
		return chardev.ErrOutOfRange
	case http.StatusNotFound:
		return chardev.ErrNotFound
	case http.StatusRequestTimeout:
		return chardev.ErrInterrupted
	case http.StatusGone:
		return chardev.ErrSessionClosed
	case http.StatusServiceUnavailable:
		return chardev.ErrShutdown
	default:
		return nil
	}
}

// TransportError wraps a failure to reach the server.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "device server unreachable: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// isServerFailure decides what the breaker counts against the server.
// Caller mistakes and interrupted reads do not count.
func isServerFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
