// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/danielhkuo/classpoll/clock"
	"github.com/danielhkuo/classpoll/middleware"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
	"github.com/gorilla/websocket"
)

// AllowAnyOrigin disables the websocket origin check.
const AllowAnyOrigin = "*"

// Hub fans events out to every connected client. The client set is owned by
// the Run goroutine; everything else talks to it through channels.
type Hub struct {
	coord  *poll.Coordinator
	roster *poll.Roster
	clock  clock.Clock

	upgrader websocket.Upgrader

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	count      atomic.Int32

	ctx      context.Context
	cancel   context.CancelFunc
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a hub and registers it for poll expiry notifications.
// allowedOrigin is matched against the Origin header on upgrade; use
// AllowAnyOrigin to accept every origin.
func New(coord *poll.Coordinator, roster *poll.Roster, clk clock.Clock, allowedOrigin string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		coord:      coord,
		roster:     roster,
		clock:      clk,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		ctx:        ctx,
		cancel:     cancel,
		quit:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(allowedOrigin),
	}

	coord.OnExpire(h.pollExpired)
	return h
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin
		if allowed == AllowAnyOrigin || origin == "" {
			return true
		}
		return origin == allowed
	}
}

// Run processes registrations and broadcasts until Shutdown is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for c := range h.clients {
				c.close()
				delete(h.clients, c)
			}
			h.count.Store(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
			slog.Info("websocket client connected", "remote", c.remote, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
				h.count.Store(int32(len(h.clients)))
				slog.Info("websocket client disconnected", "remote", c.remote, "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.enqueue(msg) {
					delete(h.clients, c)
				}
			}
			h.count.Store(int32(len(h.clients)))
		}
	}
}

// Shutdown disconnects every client and stops Run.
func (h *Hub) Shutdown() {
	h.quitOnce.Do(func() {
		h.cancel()
		close(h.quit)
	})
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", middleware.GetClientIP(r), "error", err)
		return
	}

	c := newClient(h, conn, middleware.GetClientIP(r))
	select {
	case h.register <- c:
	case <-h.quit:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		slog.Error("failed to encode broadcast", "event", event, "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.quit:
	}
}

func (h *Hub) unicast(c *Client, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		slog.Error("failed to encode message", "event", event, "error", err)
		return
	}
	c.enqueue(msg)
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) pollExpired(p *models.Poll) {
	h.Broadcast(EventPollEnded, PollEndedPayload{Poll: p})
}
