package chardev

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/gatedev/internal/shared/id"
)

// Endpoint is an externally visible identity of a device.
type Endpoint struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Minor int    `json:"minor" yaml:"minor" toml:"minor"`
}

// EndpointInfo describes a registered endpoint.
type EndpointInfo struct {
	Endpoint
	Device string `json:"device"`
}

type binding struct {
	dev *Device
	ep  Endpoint
}

// Namespace is the table of claimed endpoint names. A name may be bound to
// at most one device at a time.
type Namespace struct {
	mu      sync.RWMutex
	entries map[string]binding
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{entries: make(map[string]binding)}
}

func (ns *Namespace) register(ep Endpoint, dev *Device) error {
	if ep.Name == "" {
		return fmt.Errorf("%w: empty endpoint name", ErrRegistrationFailed)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if existing, ok := ns.entries[ep.Name]; ok {
		return fmt.Errorf("%w: %q already bound to device %q", ErrRegistrationFailed, ep.Name, existing.dev.Name())
	}
	ns.entries[ep.Name] = binding{dev: dev, ep: ep}
	return nil
}

func (ns *Namespace) unregister(name string, dev *Device) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if b, ok := ns.entries[name]; ok && b.dev == dev {
		delete(ns.entries, name)
	}
}

// Lookup resolves an endpoint name.
func (ns *Namespace) Lookup(name string) (*Device, Endpoint, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	b, ok := ns.entries[name]
	return b.dev, b.ep, ok
}

// Open opens a session on the named endpoint on behalf of actor.
func (ns *Namespace) Open(name, actor string) (*Session, error) {
	dev, ep, ok := ns.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("endpoint %q: %w", name, ErrNotFound)
	}
	return dev.Open(ep, actor)
}

// Endpoints lists every registered endpoint sorted by name.
func (ns *Namespace) Endpoints() []EndpointInfo {
	ns.mu.RLock()
	out := make([]EndpointInfo, 0, len(ns.entries))
	for _, b := range ns.entries {
		out = append(out, EndpointInfo{Endpoint: b.ep, Device: b.dev.Name()})
	}
	ns.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func (ns *Namespace) devices() []*Device {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	seen := make(map[*Device]struct{})
	var out []*Device
	for _, b := range ns.entries {
		if _, ok := seen[b.dev]; ok {
			continue
		}
		seen[b.dev] = struct{}{}
		out = append(out, b.dev)
	}
	return out
}

// Session finds an open session on any device in the namespace.
func (ns *Namespace) Session(sid id.SessionID) (*Session, error) {
	for _, dev := range ns.devices() {
		if s, ok := dev.Session(sid); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("session %q: %w", sid, ErrNotFound)
}

// Sessions lists the open sessions of every device in the namespace.
func (ns *Namespace) Sessions() []SessionInfo {
	var out []SessionInfo
	for _, dev := range ns.devices() {
		out = append(out, dev.Sessions()...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
