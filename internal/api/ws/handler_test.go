package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

type countingObserver struct {
	mu      sync.Mutex
	active  int
	frames  map[string]int
	maxOpen int
}

func (o *countingObserver) IncWSConnections() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active++
	o.maxOpen = max(o.maxOpen, o.active)
}

func (o *countingObserver) DecWSConnections() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active--
}

func (o *countingObserver) RecordWSMessage(direction, msgType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frames == nil {
		o.frames = make(map[string]int)
	}
	o.frames[direction+"/"+msgType]++
}

func (o *countingObserver) snapshot() (int, map[string]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]int, len(o.frames))
	for k, v := range o.frames {
		out[k] = v
	}
	return o.active, out
}

type fixture struct {
	ns  *chardev.Namespace
	dev *chardev.Device
	obs *countingObserver
	url string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ns := chardev.NewNamespace()
	dev, err := chardev.Start(ns, chardev.Options{
		Endpoints: []chardev.Endpoint{{Name: "gate0", Minor: 0}, {Name: "gate1", Minor: 1}},
	})
	require.NoError(t, err)
	t.Cleanup(dev.Stop)

	obs := &countingObserver{}
	router := gin.New()
	router.GET("/stream/:name", NewHandler(ns, nil, obs).HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{ns: ns, dev: dev, obs: obs, url: srv.URL}
}

func (f *fixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.url, "http")+path, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	var hello Hello
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "system", hello.Type)
	assert.NotEmpty(t, hello.Session)
	return conn
}

func (f *fixture) waitParked(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.dev.Stats().Waiters == n
	}, time.Second, time.Millisecond)
}

func (f *fixture) write(t *testing.T, endpoint string, data string, off int64) {
	t.Helper()
	s, err := f.ns.Open(endpoint, "writer")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.WriteAt([]byte(data), off)
	require.NoError(t, err)
}

func readFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return kind, data
}

func TestStreamOneFramePerRelease(t *testing.T) {
	f := setup(t)
	conn := f.dial(t, "/stream/gate0?count=5&actor=tail")

	f.waitParked(t, 1)
	f.write(t, "gate1", "hello", 0)

	kind, data := readFrame(t, conn)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, "hello", string(data))

	f.waitParked(t, 1)
	f.write(t, "gate0", "J", 0)

	_, data = readFrame(t, conn)
	assert.Equal(t, "Jello", string(data))

	require.Eventually(t, func() bool {
		_, frames := f.obs.snapshot()
		return frames["out/text"] == 1 && frames["out/binary"] == 2
	}, time.Second, time.Millisecond)
}

func TestStreamZeroCountMeansWholeBuffer(t *testing.T) {
	f := setup(t)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.url, "http")+"/stream/gate0?count=0", nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	var hello Hello
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, f.dev.Capacity(), hello.Count)

	f.waitParked(t, 1)
	f.write(t, "gate1", "hi", 0)

	_, data := readFrame(t, conn)
	assert.Len(t, data, f.dev.Capacity())
	assert.Equal(t, "hi", string(data[:2]))
}

func TestStreamBroadcastsToEveryAlias(t *testing.T) {
	f := setup(t)
	a := f.dial(t, "/stream/gate0?count=2")
	b := f.dial(t, "/stream/gate1?offset=1&count=1")

	f.waitParked(t, 2)
	f.write(t, "gate0", "hi", 0)

	_, data := readFrame(t, a)
	assert.Equal(t, "hi", string(data))
	_, data = readFrame(t, b)
	assert.Equal(t, "i", string(data))
}

func TestStreamShutdownSendsGoingAway(t *testing.T) {
	f := setup(t)
	conn := f.dial(t, "/stream/gate0")

	f.waitParked(t, 1)
	f.dev.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStreamClientDisconnectClosesSession(t *testing.T) {
	f := setup(t)
	conn := f.dial(t, "/stream/gate0")

	f.waitParked(t, 1)
	require.Len(t, f.ns.Sessions(), 1)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		active, _ := f.obs.snapshot()
		return len(f.ns.Sessions()) == 0 && active == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.dev.Stats().Waiters)
}

func TestStreamRejectsBadRequests(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown endpoint", "/stream/nope", http.StatusNotFound},
		{"offset past capacity", "/stream/gate0?offset=4096", http.StatusBadRequest},
		{"negative offset", "/stream/gate0?offset=-1", http.StatusBadRequest},
		{"negative count", "/stream/gate0?count=-1", http.StatusBadRequest},
		{"malformed count", "/stream/gate0?count=all", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(f.url + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Empty(t, f.ns.Sessions())
}
