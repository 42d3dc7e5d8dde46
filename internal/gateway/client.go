package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chebykinn/browser-code/pkg/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	eventQueueSize = 64
)

// Client is one WebSocket connection — the side panel UI, reconnecting
// under the `sidebar:tab:{tabId}` channel concept of spec §4.D.1. A
// single connection is not pinned to one tab at the protocol level:
// every RequestFrame carries its own TabID, and every broadcast event's
// payload carries the TabID it concerns, so the UI itself decides what's
// relevant to the tab it's currently showing.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server

	send chan protocol.EventFrame

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		send:   make(chan protocol.EventFrame, eventQueueSize),
		done:   make(chan struct{}),
	}
}

// SendEvent queues an event for delivery; if the client's outbound queue
// is full (a stalled or very slow connection) the event is dropped rather
// than blocking the agent loop's broadcast.
func (c *Client) SendEvent(ev protocol.EventFrame) {
	select {
	case c.send <- ev:
	default:
		slog.Warn("gateway.client.send_dropped", "client", c.id, "event", ev.Name)
	}
}

// Close tears the connection down; idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Run services the connection until it closes or ctx is canceled: one
// goroutine writes queued events (plus periodic pings), the calling
// goroutine reads and dispatches requests.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req protocol.RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			c.writeResponse(protocol.ResponseFrame{Error: &protocol.ErrorFrame{Kind: "invalid_request", Message: err.Error()}})
			continue
		}
		resp := c.server.router.Handle(ctx, c, req)
		c.writeResponse(resp)
	}
}

func (c *Client) writeResponse(resp protocol.ResponseFrame) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
