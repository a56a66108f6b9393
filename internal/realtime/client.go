package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	realtimeURL    = "wss://api.openai.com/v1/realtime?model=gpt-realtime"
	connectTimeout = 15 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 75 * time.Second
)

// Client is a thin connection to the OpenAI Realtime API. Writes are
// serialized; reads belong to a single consumer.
type Client struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	pingStop  chan struct{}
	log       *slog.Logger
}

// Dial connects and authenticates. The caller still has to send the session
// configuration before audio will flow.
func Dial(ctx context.Context, apiKey string, log *slog.Logger) (*Client, error) {
	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+apiKey)

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, realtimeURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	c := &Client{conn: conn, pingStop: make(chan struct{}), log: log}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pingLoop()

	return c, nil
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.pingStop:
			return
		}
	}
}

// Send writes one client event. Safe for concurrent use.
func (c *Client) Send(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("realtime connection is closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// ReadEvent blocks for the next server event. A normal close returns
// (nil, nil); the caller should end the session. A message that fails to
// decode is logged and skipped; only transport failures end the read.
func (c *Client) ReadEvent() (*serverEvent, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, nil
			}
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var event serverEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.log.Warn("discarding malformed server event", "error", err)
			continue
		}
		return &event, nil
	}
}

// Close sends a close frame and tears down the connection. Safe to call more
// than once and from any goroutine; it also unblocks a pending ReadEvent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.pingStop)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		c.conn.Close()
	})
}
