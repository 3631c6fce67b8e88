package chardev

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gatedev/internal/domain/buffer"
	"github.com/GriffinCanCode/gatedev/internal/domain/gate"
	"github.com/GriffinCanCode/gatedev/internal/shared/id"
)

// DefaultName is used when Options.Name is empty.
const DefaultName = "gate"

// Options configures Start.
type Options struct {
	Name      string
	Capacity  int
	Endpoints []Endpoint
	Logger    *zap.Logger
	Recorder  Recorder
}

// Stats is a point-in-time view of a device.
type Stats struct {
	Name         string    `json:"name"`
	InstanceID   string    `json:"instance_id"`
	Capacity     int       `json:"capacity"`
	Endpoints    int       `json:"endpoints"`
	Generation   uint64    `json:"generation"`
	Waiters      int       `json:"waiters"`
	Sessions     int       `json:"sessions"`
	Reads        uint64    `json:"reads"`
	Writes       uint64    `json:"writes"`
	BytesRead    uint64    `json:"bytes_read"`
	BytesWritten uint64    `json:"bytes_written"`
	StartedAt    time.Time `json:"started_at"`
	Stopped      bool      `json:"stopped"`
}

// Device owns the gate and buffer shared by all of its endpoints.
type Device struct {
	name      string
	instance  uuid.UUID
	startedAt time.Time
	endpoints []Endpoint

	gate *gate.Gate
	buf  *buffer.Buffer
	ns   *Namespace

	logger *zap.Logger
	rec    Recorder

	mu       sync.Mutex
	sessions map[id.SessionID]*Session
	stopped  atomic.Bool

	reads        atomic.Uint64
	writes       atomic.Uint64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// Start allocates a device with an unsignaled gate and a zeroed buffer and
// registers each endpoint in ns. If any endpoint cannot be claimed, the
// ones already claimed are released and ErrRegistrationFailed is returned.
func Start(ns *Namespace, opts Options) (*Device, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = []Endpoint{{Name: opts.Name}}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	d := &Device{
		name:      opts.Name,
		instance:  uuid.New(),
		startedAt: time.Now(),
		endpoints: append([]Endpoint(nil), opts.Endpoints...),
		gate:      gate.New(),
		buf:       buffer.New(opts.Capacity),
		ns:        ns,
		logger:    opts.Logger.With(zap.String("device", opts.Name)),
		rec:       opts.Recorder,
		sessions:  make(map[id.SessionID]*Session),
	}

	for i, ep := range d.endpoints {
		if err := ns.register(ep, d); err != nil {
			for _, claimed := range d.endpoints[:i] {
				ns.unregister(claimed.Name, d)
			}
			d.logger.Error("Endpoint registration failed", zap.String("endpoint", ep.Name), zap.Error(err))
			return nil, err
		}
	}

	d.logger.Info("Device started",
		zap.String("instance", d.instance.String()),
		zap.Int("capacity", d.buf.Cap()),
		zap.Int("endpoints", len(d.endpoints)),
	)
	return d, nil
}

// Stop unregisters every endpoint, releases blocked readers with
// ErrShutdown and closes all open sessions. Stop is idempotent.
func (d *Device) Stop() {
	if !d.stopped.CompareAndSwap(false, true) {
		return
	}

	for _, ep := range d.endpoints {
		d.ns.unregister(ep.Name, d)
	}

	released := d.gate.Close()

	d.mu.Lock()
	open := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		open = append(open, s)
	}
	d.mu.Unlock()

	for _, s := range open {
		if err := s.Close(); err != nil && !errors.Is(err, ErrSessionClosed) {
			d.logger.Warn("Failed to close session on shutdown", zap.String("session", s.ID().String()), zap.Error(err))
		}
	}

	d.logger.Info("Device stopped",
		zap.Int("released_readers", released),
		zap.Int("closed_sessions", len(open)),
	)
}

// Open creates a session bound to this device through ep.
func (d *Device) Open(ep Endpoint, actor string) (*Session, error) {
	s := newSession(d, ep, actor)

	d.mu.Lock()
	if d.stopped.Load() {
		d.mu.Unlock()
		s.cancel()
		return nil, ErrShutdown
	}
	d.sessions[s.id] = s
	d.mu.Unlock()

	d.rec.SessionOpened(ep.Name)
	d.logger.Debug("Session opened",
		zap.String("session", s.id.String()),
		zap.String("endpoint", ep.Name),
		zap.String("actor", actor),
	)
	return s, nil
}

func (d *Device) forget(s *Session) {
	d.mu.Lock()
	delete(d.sessions, s.id)
	d.mu.Unlock()
}

// Session returns an open session by ID.
func (d *Device) Session(sid id.SessionID) (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[sid]
	return s, ok
}

// Sessions describes every open session.
func (d *Device) Sessions() []SessionInfo {
	d.mu.Lock()
	out := make([]SessionInfo, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s.Info())
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// InstanceID identifies this particular start of the device.
func (d *Device) InstanceID() string { return d.instance.String() }

// Capacity returns the shared buffer's capacity.
func (d *Device) Capacity() int { return d.buf.Cap() }

// Endpoints returns the aliases this device was started with.
func (d *Device) Endpoints() []Endpoint {
	return append([]Endpoint(nil), d.endpoints...)
}

// Stopped reports whether Stop has been called.
func (d *Device) Stopped() bool { return d.stopped.Load() }

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	sessions := len(d.sessions)
	d.mu.Unlock()

	return Stats{
		Name:         d.name,
		InstanceID:   d.instance.String(),
		Capacity:     d.buf.Cap(),
		Endpoints:    len(d.endpoints),
		Generation:   d.gate.Generation(),
		Waiters:      d.gate.Waiters(),
		Sessions:     sessions,
		Reads:        d.reads.Load(),
		Writes:       d.writes.Load(),
		BytesRead:    d.bytesRead.Load(),
		BytesWritten: d.bytesWritten.Load(),
		StartedAt:    d.startedAt,
		Stopped:      d.stopped.Load(),
	}
}
