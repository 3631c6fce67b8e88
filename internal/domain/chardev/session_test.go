package chardev

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReleasedByWriter(t *testing.T) {
	ns, _ := startDevice(t, Options{})
	reader := open(t, ns, "gate0")
	writer := open(t, ns, "gate0")

	ch := blockRead(t, context.Background(), reader, 0, 5)

	n, err := writer.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	r := await(t, ch)
	require.NoError(t, r.err)
	assert.Equal(t, 5, r.n)
	assert.Equal(t, "hello", string(r.data))
}

func TestWriteBroadcastsToAllReaders(t *testing.T) {
	rec := &fakeRecorder{}
	ns, _ := startDevice(t, Options{Recorder: rec})

	a := blockRead(t, context.Background(), open(t, ns, "gate0"), 0, 2)
	b := blockRead(t, context.Background(), open(t, ns, "gate1"), 0, 2)

	writer := open(t, ns, "gate1")
	_, err := writer.WriteAt([]byte("hi"), 0)
	require.NoError(t, err)

	for _, ch := range []<-chan readResult{a, b} {
		r := await(t, ch)
		require.NoError(t, r.err)
		assert.Equal(t, "hi", string(r.data))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.released)
	assert.Equal(t, 2, rec.written)
	assert.Equal(t, 4, rec.read)
}

func TestReadAfterWriteWaitsForNextWrite(t *testing.T) {
	ns, _ := startDevice(t, Options{})
	s := open(t, ns, "gate0")

	_, err := s.WriteAt([]byte("first"), 0)
	require.NoError(t, err)

	ch := blockRead(t, context.Background(), s, 0, 6)
	select {
	case r := <-ch:
		t.Fatalf("read returned without a new write: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	_, err = s.WriteAt([]byte("second"), 0)
	require.NoError(t, err)

	r := await(t, ch)
	require.NoError(t, r.err)
	assert.Equal(t, "second", string(r.data))
}

func TestReadPastCapacityReturnsImmediately(t *testing.T) {
	ns, dev := startDevice(t, Options{})
	s := open(t, ns, "gate0")

	for _, off := range []int64{int64(dev.Capacity()), int64(dev.Capacity()) + 100} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		n, err := s.ReadAt(ctx, make([]byte, 16), off)
		cancel()

		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Zero(t, dev.Stats().Waiters)
}

func TestReadPastCapacityIgnoresSessionState(t *testing.T) {
	t.Run("closed session", func(t *testing.T) {
		ns, dev := startDevice(t, Options{Capacity: 16})
		s := open(t, ns, "gate0")
		require.NoError(t, s.Close())

		n, err := s.ReadAt(context.Background(), make([]byte, 4), int64(dev.Capacity()))
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = s.ReadAt(context.Background(), make([]byte, 4), 0)
		assert.ErrorIs(t, err, ErrSessionClosed)
	})

	t.Run("stopped device", func(t *testing.T) {
		ns, dev := startDevice(t, Options{Capacity: 16})
		s := open(t, ns, "gate0")
		dev.Stop()

		n, err := s.ReadAt(context.Background(), make([]byte, 4), 16)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestWriteOutOfRangeDoesNotSignal(t *testing.T) {
	ns, dev := startDevice(t, Options{})
	reader := open(t, ns, "gate0")
	writer := open(t, ns, "gate1")

	ch := blockRead(t, context.Background(), reader, 0, 4)

	n, err := writer.WriteAt([]byte("nope"), int64(dev.Capacity()))
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Zero(t, n)

	select {
	case r := <-ch:
		t.Fatalf("out of range write released a reader: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, uint64(0), dev.Stats().Generation)
	assert.Equal(t, make([]byte, dev.Capacity()), dev.buf.Snapshot())

	_, err = writer.WriteAt([]byte("ok"), 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(await(t, ch).data[:2]))
}

func TestShortWriteAtBoundary(t *testing.T) {
	ns, _ := startDevice(t, Options{Capacity: 4096})
	reader := open(t, ns, "gate0")
	writer := open(t, ns, "gate1")

	ch := blockRead(t, context.Background(), reader, 4090, 10)

	payload := []byte("0123456789")
	n, err := writer.WriteAt(payload, 4090)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	r := await(t, ch)
	require.NoError(t, r.err)
	assert.Equal(t, 6, r.n)
	assert.Equal(t, "012345", string(r.data))
}

func TestReadInterruptedByContext(t *testing.T) {
	rec := &fakeRecorder{}
	ns, dev := startDevice(t, Options{Recorder: rec})
	s := open(t, ns, "gate0")

	ctx, cancel := context.WithCancel(context.Background())
	ch := blockRead(t, ctx, s, 0, 4)
	cancel()

	r := await(t, ch)
	assert.ErrorIs(t, r.err, ErrInterrupted)
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Zero(t, r.n)
	assert.Zero(t, dev.Stats().Waiters)

	rec.mu.Lock()
	assert.Equal(t, 1, rec.interrupted)
	rec.mu.Unlock()

	// The session is still usable.
	ch = blockRead(t, context.Background(), s, 0, 2)
	_, err := open(t, ns, "gate1").WriteAt([]byte("ok"), 0)
	require.NoError(t, err)
	assert.NoError(t, await(t, ch).err)
}

func TestCloseInterruptsBlockedRead(t *testing.T) {
	ns, _ := startDevice(t, Options{})
	s := open(t, ns, "gate0")

	ch := blockRead(t, context.Background(), s, 0, 4)
	require.NoError(t, s.Close())

	r := await(t, ch)
	assert.ErrorIs(t, r.err, ErrInterrupted)

	assert.ErrorIs(t, s.Close(), ErrSessionClosed)
	_, err := s.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.ReadAt(context.Background(), make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestClosingOneSessionLeavesOthersBlocked(t *testing.T) {
	ns, _ := startDevice(t, Options{})
	keep := open(t, ns, "gate0")
	drop := open(t, ns, "gate0")

	kept := blockRead(t, context.Background(), keep, 0, 3)
	dropped := blockRead(t, context.Background(), drop, 0, 3)

	require.NoError(t, drop.Close())
	assert.ErrorIs(t, await(t, dropped).err, ErrInterrupted)

	select {
	case r := <-kept:
		t.Fatalf("unrelated reader returned: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	_, err := open(t, ns, "gate1").WriteAt([]byte("abc"), 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(await(t, kept).data))
}

func TestSequentialReadWriteAdvancePosition(t *testing.T) {
	ns, _ := startDevice(t, Options{Capacity: 16})
	writer := open(t, ns, "gate0")
	reader := open(t, ns, "gate1")

	n, err := writer.Write([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = writer.Write([]byte("efgh"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(8), writer.Info().Position)

	done := make(chan readResult, 1)
	go func() {
		p := make([]byte, 4)
		n, err := reader.Read(context.Background(), p)
		done <- readResult{n: n, data: p[:n], err: err}
	}()
	require.Eventually(t, func() bool { return reader.dev.gate.Waiters() == 1 }, time.Second, time.Millisecond)

	_, err = writer.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = writer.Write([]byte("ABCD"))
	require.NoError(t, err)

	r := await(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "ABCD", string(r.data))
	assert.Equal(t, int64(4), reader.Info().Position)
}

func TestSeek(t *testing.T) {
	ns, _ := startDevice(t, Options{Capacity: 32})
	s := open(t, ns, "gate0")

	tests := []struct {
		name    string
		offset  int64
		whence  int
		want    int64
		wantErr bool
	}{
		{name: "start", offset: 10, whence: io.SeekStart, want: 10},
		{name: "current", offset: 5, whence: io.SeekCurrent, want: 15},
		{name: "end", offset: -2, whence: io.SeekEnd, want: 30},
		{name: "past end", offset: 4, whence: io.SeekEnd, want: 36},
		{name: "negative", offset: -100, whence: io.SeekCurrent, wantErr: true},
		{name: "bad whence", offset: 0, whence: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Seek(tt.offset, tt.whence)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// Position is past the end now: writes fail, reads are end of data.
	_, err := s.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrOutOfRange)
	n, err := s.Read(context.Background(), make([]byte, 1))
	assert.NoError(t, err)
	assert.Zero(t, n)
}
