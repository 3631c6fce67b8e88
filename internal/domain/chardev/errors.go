package chardev

import (
	"errors"

	"github.com/GriffinCanCode/gatedev/internal/domain/buffer"
	"github.com/GriffinCanCode/gatedev/internal/domain/gate"
)

var (
	// ErrOutOfRange is returned by writes that start outside the buffer.
	ErrOutOfRange = buffer.ErrOutOfRange
	// ErrInterrupted is returned by a read whose wait was interrupted,
	// either by its context or by closing the session. No data was read.
	ErrInterrupted = gate.ErrInterrupted
	// ErrRegistrationFailed is returned by Start when an endpoint name
	// cannot be claimed.
	ErrRegistrationFailed = errors.New("endpoint registration failed")
	// ErrShutdown is returned once the device has been stopped.
	ErrShutdown = errors.New("device shut down")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrNotFound is returned when an endpoint or session does not exist.
	ErrNotFound = errors.New("not found")
)
