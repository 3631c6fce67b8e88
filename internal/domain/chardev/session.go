package chardev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gatedev/internal/domain/gate"
	"github.com/GriffinCanCode/gatedev/internal/shared/id"
)

// SessionInfo describes an open session.
type SessionInfo struct {
	ID       id.SessionID `json:"id"`
	Endpoint string       `json:"endpoint"`
	Minor    int          `json:"minor"`
	Actor    string       `json:"actor"`
	Position int64        `json:"position"`
	OpenedAt time.Time    `json:"opened_at"`
}

// Session is one open handle on a device endpoint. It references the
// device's gate and buffer but owns neither.
type Session struct {
	id       id.SessionID
	dev      *Device
	endpoint Endpoint
	actor    string
	openedAt time.Time
	logger   *zap.Logger

	// ctx is cancelled by Close to interrupt reads parked on the gate.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	pos    int64
	closed bool
}

func newSession(d *Device, ep Endpoint, actor string) *Session {
	sid := id.NewSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       sid,
		dev:      d,
		endpoint: ep,
		actor:    actor,
		openedAt: time.Now(),
		logger: d.logger.With(
			zap.String("session", sid.String()),
			zap.String("endpoint", ep.Name),
			zap.String("actor", actor),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID { return s.id }

// Endpoint returns the endpoint the session was opened through.
func (s *Session) Endpoint() Endpoint { return s.endpoint }

// Capacity returns the capacity of the underlying buffer.
func (s *Session) Capacity() int { return s.dev.buf.Cap() }

// Info describes the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	pos := s.pos
	s.mu.Unlock()

	return SessionInfo{
		ID:       s.id,
		Endpoint: s.endpoint.Name,
		Minor:    s.endpoint.Minor,
		Actor:    s.actor,
		Position: pos,
		OpenedAt: s.openedAt,
	}
}

func (s *Session) check() error {
	if s.dev.stopped.Load() {
		return ErrShutdown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// ReadAt parks on the device gate until a writer signals and then copies
// the buffer starting at off into p. An offset at or past the buffer's
// capacity returns 0 immediately without waiting, even on a closed session
// or a stopped device.
//
// If ctx ends or the session is closed while parked, ReadAt returns
// ErrInterrupted and no data. If the device is stopped, it returns
// ErrShutdown.
func (s *Session) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= int64(s.dev.buf.Cap()) {
		return 0, nil
	}
	if err := s.check(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: %w", off, ErrOutOfRange)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.logger.Info("Reader going to sleep", zap.Int64("offset", off))
	if err := s.dev.gate.Wait(ctx); err != nil {
		if errors.Is(err, gate.ErrClosed) {
			return 0, fmt.Errorf("%w: %w", ErrShutdown, err)
		}
		s.dev.rec.WaitInterrupted(s.endpoint.Name)
		s.logger.Info("Reader interrupted", zap.Error(err))
		return 0, err
	}
	s.logger.Info("Reader awoken")

	n, err := s.dev.buf.ReadAt(p, off)
	if err != nil {
		return 0, err
	}

	s.dev.reads.Add(1)
	s.dev.bytesRead.Add(uint64(n))
	s.dev.rec.BytesRead(s.endpoint.Name, n)
	return n, nil
}

// WriteAt copies p into the buffer at off and then signals the gate,
// releasing every parked reader on every alias of the device. The buffer
// lock is released before signaling. A write that starts outside the
// buffer fails with ErrOutOfRange and signals nobody.
func (s *Session) WriteAt(p []byte, off int64) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	n, err := s.dev.buf.WriteAt(p, off)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Writer awakening the readers", zap.Int64("offset", off), zap.Int("bytes", n))
	released := s.dev.gate.Signal()

	s.dev.writes.Add(1)
	s.dev.bytesWritten.Add(uint64(n))
	s.dev.rec.BytesWritten(s.endpoint.Name, n)
	s.dev.rec.Signaled(s.endpoint.Name, released)
	return n, nil
}

// Read reads at the session position and advances it.
func (s *Session) Read(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	off := s.pos
	s.mu.Unlock()

	n, err := s.ReadAt(ctx, p, off)
	s.advance(off, n)
	return n, err
}

// Write writes at the session position and advances it.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	off := s.pos
	s.mu.Unlock()

	n, err := s.WriteAt(p, off)
	s.advance(off, n)
	return n, err
}

func (s *Session) advance(from int64, n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.pos = from + int64(n)
	s.mu.Unlock()
}

// Seek sets the session position. io.SeekEnd is relative to the buffer
// capacity. Positions past the end are allowed; reads there return 0 and
// writes fail with ErrOutOfRange.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		base = int64(s.dev.buf.Cap())
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}

	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("seek to %d: %w", next, ErrOutOfRange)
	}
	s.pos = next
	return next, nil
}

// Close ends the session. A read parked on this session returns
// ErrInterrupted. The device's gate and buffer are unaffected.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.dev.forget(s)
	s.dev.rec.SessionClosed(s.endpoint.Name)
	s.logger.Debug("Session closed")
	return nil
}
