package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Observer receives connection and frame counts.
type Observer interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
}

type nopObserver struct{}

func (nopObserver) IncWSConnections()              {}
func (nopObserver) DecWSConnections()              {}
func (nopObserver) RecordWSMessage(string, string) {}

// Hello is the first frame sent on a stream.
type Hello struct {
	Type     string `json:"type"`
	Session  string `json:"session"`
	Endpoint string `json:"endpoint"`
	Offset   int64  `json:"offset"`
	Count    int    `json:"count"`
}

// Handler streams device releases over WebSocket
type Handler struct {
	ns     *chardev.Namespace
	logger *zap.Logger
	obs    Observer
}

// NewHandler creates a new WebSocket handler. obs may be nil.
func NewHandler(ns *chardev.Namespace, logger *zap.Logger, obs Observer) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Handler{ns: ns, logger: logger, obs: obs}
}

// HandleConnection opens a session on the :name endpoint and sends one
// binary frame with the buffer contents at offset every time a writer
// signals the device. The stream ends when the client goes away or the
// device shuts down.
func (h *Handler) HandleConnection(c *gin.Context) {
	name := c.Param("name")
	dev, _, ok := h.ns.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "endpoint " + strconv.Quote(name) + ": not found"})
		return
	}

	capacity := dev.Capacity()
	off, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if err != nil || off < 0 || off >= int64(capacity) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "offset must be within the buffer"})
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(capacity)))
	if err != nil || count < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "count must not be negative"})
		return
	}
	if count == 0 || count > capacity {
		count = capacity
	}

	actor := c.DefaultQuery("actor", c.ClientIP())
	sess, err := h.ns.Open(name, actor)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, chardev.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	defer sess.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.obs.IncWSConnections()
	defer h.obs.DecWSConnections()

	log := h.logger.With(zap.String("session", sess.ID().String()), zap.String("endpoint", name))
	log.Debug("Stream opened", zap.Int64("offset", off), zap.Int("count", count))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.drain(conn, cancel)

	hello := Hello{Type: "system", Session: sess.ID().String(), Endpoint: name, Offset: off, Count: count}
	if err := h.send(conn, websocket.TextMessage, func() error { return conn.WriteJSON(hello) }); err != nil {
		return
	}

	p := make([]byte, count)
	for {
		n, err := sess.ReadAt(ctx, p, off)
		switch {
		case errors.Is(err, chardev.ErrShutdown):
			log.Debug("Stream closed by shutdown")
			h.closeWith(conn, websocket.CloseGoingAway, "device shut down")
			return
		case err != nil:
			log.Debug("Stream ended", zap.Error(err))
			return
		}

		if err := h.send(conn, websocket.BinaryMessage, func() error {
			return conn.WriteMessage(websocket.BinaryMessage, p[:n])
		}); err != nil {
			log.Debug("Stream write failed", zap.Error(err))
			return
		}
	}
}

// drain consumes client frames so control frames are processed and cancels
// the stream once the client disconnects.
func (h *Handler) drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		h.obs.RecordWSMessage("in", "text")
	}
}

func (h *Handler) send(conn *websocket.Conn, msgType int, write func() error) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	kind := "binary"
	if msgType == websocket.TextMessage {
		kind = "text"
	}
	h.obs.RecordWSMessage("out", kind)
	return nil
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("Failed to send close frame", zap.Error(err))
	}
}
