// Package buffer implements the fixed-size shared memory page that carries
// a payload from a signaling writer to the readers it releases.
package buffer

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity is one page.
const DefaultCapacity = 4096

// ErrOutOfRange is returned when a write starts outside the buffer.
var ErrOutOfRange = errors.New("offset out of range")

// Buffer is a zero-initialized byte array of fixed capacity. Every access
// is serialized by a single lock, held only for the duration of a copy.
type Buffer struct {
	mu   sync.Mutex
	data []byte
}

// New allocates a zero-filled buffer. A non-positive capacity selects
// DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// WriteAt copies as much of p as fits starting at off and returns the
// number of bytes copied. Supplying more bytes than remain is a short
// write, not an error. An offset outside [0, Cap()) fails with
// ErrOutOfRange and leaves the buffer untouched.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return 0, fmt.Errorf("write at %d (capacity %d): %w", off, len(b.data), ErrOutOfRange)
	}

	b.mu.Lock()
	n := copy(b.data[off:], p)
	b.mu.Unlock()

	return n, nil
}

// ReadAt copies up to len(p) bytes starting at off into p and returns the
// number of bytes copied. Reading at or past Cap() is end of data and
// returns 0 with no error. Negative offsets fail with ErrOutOfRange.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: %w", off, ErrOutOfRange)
	}
	if off >= int64(len(b.data)) {
		return 0, nil
	}

	b.mu.Lock()
	n := copy(p, b.data[off:])
	b.mu.Unlock()

	return n, nil
}

// Snapshot returns a copy of the whole buffer.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, len(b.data))

	b.mu.Lock()
	copy(out, b.data)
	b.mu.Unlock()

	return out
}

// Reset zero-fills the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	clear(b.data)
	b.mu.Unlock()
}
