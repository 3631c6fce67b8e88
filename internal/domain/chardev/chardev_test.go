package chardev

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var twoMinors = []Endpoint{{Name: "gate0", Minor: 0}, {Name: "gate1", Minor: 1}}

func startDevice(t *testing.T, opts Options) (*Namespace, *Device) {
	t.Helper()

	ns := NewNamespace()
	if opts.Endpoints == nil {
		opts.Endpoints = twoMinors
	}
	dev, err := Start(ns, opts)
	require.NoError(t, err)
	t.Cleanup(dev.Stop)
	return ns, dev
}

func open(t *testing.T, ns *Namespace, name string) *Session {
	t.Helper()

	s, err := ns.Open(name, t.Name())
	require.NoError(t, err)
	return s
}

type readResult struct {
	n    int
	data []byte
	err  error
}

// blockRead starts a ReadAt on s and waits until the device gate shows one
// more parked reader.
func blockRead(t *testing.T, ctx context.Context, s *Session, off int64, size int) <-chan readResult {
	t.Helper()

	before := s.dev.gate.Waiters()
	out := make(chan readResult, 1)
	go func() {
		p := make([]byte, size)
		n, err := s.ReadAt(ctx, p, off)
		out <- readResult{n: n, data: p[:n], err: err}
	}()

	require.Eventually(t, func() bool {
		return s.dev.gate.Waiters() == before+1
	}, time.Second, time.Millisecond)
	return out
}

func await(t *testing.T, ch <-chan readResult) readResult {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("read did not return")
		return readResult{}
	}
}

type fakeRecorder struct {
	mu          sync.Mutex
	opened      int
	closed      int
	read        int
	written     int
	released    int
	interrupted int
}

func (f *fakeRecorder) SessionOpened(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
}

func (f *fakeRecorder) SessionClosed(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeRecorder) BytesRead(_ string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read += n
}

func (f *fakeRecorder) BytesWritten(_ string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written += n
}

func (f *fakeRecorder) Signaled(_ string, released int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released += released
}

func (f *fakeRecorder) WaitInterrupted(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupted++
}
