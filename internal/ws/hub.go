// Package ws fans mirrored dashboard events out to WebSocket clients. Clients
// only listen; anything they send is read and discarded so pongs and close
// frames are processed.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 20 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second

	// queueSize bounds pending broadcasts. Publishers never block; a full
	// queue drops the message.
	queueSize = 256
)

// Hub owns the client set. Registration, removal and delivery all happen on
// the goroutine running Run.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        *slog.Logger

	count   atomic.Int64
	dropped atomic.Int64
}

// NewHub allocates a hub. Call Run in a goroutine to start delivering.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, queueSize),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.With("component", "ws"),
	}
}

// Run delivers broadcasts and keepalive pings until ctx ends, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.log.Debug("client connected", "remote", c.RemoteAddr().String())

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.remove(c)
				}
			}

		case <-ping.C:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *websocket.Conn) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count.Store(int64(len(h.clients)))
	_ = c.Close()
	h.log.Debug("client disconnected", "remote", c.RemoteAddr().String())
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Dropped counts messages lost to a full queue.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Handler upgrades requests to WebSocket connections and registers them.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied.
			h.log.Debug("websocket upgrade failed", "err", err)
			return
		}
		select {
		case h.register <- conn:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go func() {
			defer func() {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
			}()
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON marshals v and queues it for every client without blocking.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("dropping unencodable event", "err", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.dropped.Add(1)
	}
}
