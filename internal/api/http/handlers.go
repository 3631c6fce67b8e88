package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gatedev/internal/api/middleware"
	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
	"github.com/GriffinCanCode/gatedev/internal/shared/id"
)

// Version is reported by the root handler.
const Version = "0.1.0"

// Handlers serves the device over HTTP
type Handlers struct {
	ns     *chardev.Namespace
	dev    *chardev.Device
	logger *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(ns *chardev.Namespace, dev *chardev.Device, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{ns: ns, dev: dev, logger: logger}
}

// Register mounts every device route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/endpoints", h.ListEndpoints)
	r.POST("/endpoints/:name/sessions", h.OpenSession)

	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/sessions/:id/read", h.Read)
	r.POST("/sessions/:id/write", h.Write)
	r.POST("/sessions/:id/seek", h.Seek)
	r.DELETE("/sessions/:id", h.CloseSession)

	r.GET("/device/stats", h.Stats)
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "gatedev",
		"version": Version,
	})
}

// Health reports liveness and device state
func (h *Handlers) Health(c *gin.Context) {
	stats := h.dev.Stats()
	status, code := "healthy", http.StatusOK
	if stats.Stopped {
		status, code = "stopping", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"device": gin.H{
			"name":        stats.Name,
			"instance_id": stats.InstanceID,
			"started_at":  stats.StartedAt,
			"capacity":    stats.Capacity,
			"endpoints":   stats.Endpoints,
		},
	})
}

// ListEndpoints lists registered aliases
func (h *Handlers) ListEndpoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"endpoints": h.ns.Endpoints(),
	})
}

// OpenSession opens a session on an endpoint. The optional JSON body
// {"actor": "..."} names the caller; it defaults to the client IP.
func (h *Handlers) OpenSession(c *gin.Context) {
	var req struct {
		Actor string `json:"actor"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: body: %v", errParam, err))
			return
		}
	}
	if req.Actor == "" {
		req.Actor = c.ClientIP()
	}

	s, err := h.ns.Open(c.Param("name"), req.Actor)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": s.Info(),
	})
}

// ListSessions lists open sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.ns.Sessions()
	if sessions == nil {
		sessions = []chardev.SessionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
	})
}

// GetSession describes one session
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": s.Info(),
	})
}

// Read blocks until the next write to the device and returns the buffer
// contents as the raw response body. Query parameters:
//
//	offset   byte offset; omitted reads at the session position and advances it
//	count    bytes wanted, capped at the capacity; 0 or omitted means capacity
//	timeout  optional wait limit such as "5s"; expiry answers 408
//
// A client disconnect also interrupts the wait.
func (h *Handlers) Read(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	count, err := intParam(c, "count", s.Capacity())
	if err != nil {
		fail(c, err)
		return
	}
	if count < 0 {
		fail(c, fmt.Errorf("%w: count %d", errParam, count))
		return
	}
	if count == 0 || count > s.Capacity() {
		count = s.Capacity()
	}

	ctx := c.Request.Context()
	if raw := c.Query("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			fail(c, fmt.Errorf("%w: timeout %q", errParam, raw))
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p := make([]byte, count)
	var n int
	if raw, ok := c.GetQuery("offset"); ok {
		off, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			fail(c, fmt.Errorf("%w: offset %q", errParam, raw))
			return
		}
		n, err = s.ReadAt(ctx, p, off)
	} else {
		n, err = s.Read(ctx, p)
	}
	if err != nil {
		fail(c, err)
		return
	}

	c.Header(middleware.HeaderBytesRead, strconv.Itoa(n))
	c.Data(http.StatusOK, "application/octet-stream", p[:n])
}

// Write stores the raw request body in the device buffer and wakes every
// parked reader. offset works as in Read.
func (h *Handlers) Write(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	// bytes past capacity can never be stored
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(s.Capacity())))
	if err != nil {
		fail(c, fmt.Errorf("%w: body: %v", errParam, err))
		return
	}

	var n int
	if raw, ok := c.GetQuery("offset"); ok {
		off, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			fail(c, fmt.Errorf("%w: offset %q", errParam, raw))
			return
		}
		n, err = s.WriteAt(body, off)
	} else {
		n, err = s.Write(body)
	}
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"written": n,
	})
}

// Seek moves the session position. Body: {"offset": n, "whence": 0|1|2}.
func (h *Handlers) Seek(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Offset int64 `json:"offset"`
		Whence int   `json:"whence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: body: %v", errParam, err))
		return
	}

	pos, err := s.Seek(req.Offset, req.Whence)
	if err != nil {
		if req.Whence < io.SeekStart || req.Whence > io.SeekEnd {
			err = fmt.Errorf("%w: %v", errParam, err)
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"position": pos,
	})
}

// CloseSession closes a session, interrupting any read parked on it
func (h *Handlers) CloseSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Close(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats reports gate and buffer counters
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.dev.Stats(),
	})
}

func (h *Handlers) session(c *gin.Context) (*chardev.Session, bool) {
	s, err := h.ns.Session(id.SessionID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return s, true
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errParam, name, raw)
	}
	return v, nil
}
