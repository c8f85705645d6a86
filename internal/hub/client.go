package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

type Options struct {
	// ReadLimit caps a single inbound frame; SDP blobs fit comfortably in 64 KB.
	ReadLimit  int64
	WriteWait  time.Duration
	PongWait   time.Duration
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  64 * 1024,
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		SendBuffer: 64,
	}
}

// Client is a single signaling WebSocket connection.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	opts Options
	log  *slog.Logger

	// groups is guarded by the owning hub's mutex.
	groups map[string]struct{}

	mu     sync.RWMutex
	closed bool
}

func NewClient(conn *websocket.Conn, opts Options, log *slog.Logger) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, opts.SendBuffer),
		opts:   opts,
		log:    log.With(slog.String("connection_id", id)),
		groups: make(map[string]struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// TrySend enqueues a frame without blocking.
func (c *Client) TrySend(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close stops the send queue; WritePump then sends a close frame and exits.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames until the connection fails and hands each one to handle.
// There is at most one reader per connection.
func (c *Client) ReadPump(ctx context.Context, handle func(ctx context.Context, data []byte)) {
	defer c.conn.Close()

	if c.opts.ReadLimit > 0 {
		c.conn.SetReadLimit(c.opts.ReadLimit)
	}
	pongWait := c.opts.PongWait
	if pongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("connection closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(ctx, data)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
// There is at most one writer per connection.
func (c *Client) WritePump(ctx context.Context) {
	pingPeriod := (c.opts.PongWait * 9) / 10
	if pingPeriod <= 0 {
		pingPeriod = (DefaultOptions().PongWait * 9) / 10
	}
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
