// Package observer streams each tick's events to websocket clients.
// Observers are read-only: nothing they send reaches the simulation.
package observer

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ironforge/outpost/internal/config"
	"github.com/ironforge/outpost/internal/core/event"
)

// Batch is one websocket text frame.
type Batch struct {
	Tick   uint64        `json:"tick"`
	Events []event.Event `json:"events"`
}

type client struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
}

// Hub fans tick batches out to connected observers. A client whose queue
// is full misses batches instead of stalling the tick loop.
type Hub struct {
	cfg config.ObserverConfig
	log *zap.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewHub(cfg config.ObserverConfig, log *zap.Logger) *Hub {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Attach subscribes the hub to every batch dispatched on bus.
func (h *Hub) Attach(bus *event.Bus) {
	bus.SubscribeBatch(h.Publish)
}

// Publish queues events for every client. It never blocks.
func (h *Hub) Publish(events []event.Event) {
	if len(events) == 0 {
		return
	}
	b, err := json.Marshal(Batch{Tick: events[0].Tick, Events: events})
	if err != nil {
		h.log.Warn("encode observer batch", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.out <- b:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients reports how many observers are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stats returns the number of queued and dropped frames since start.
func (h *Hub) Stats() (sent, dropped uint64) {
	return h.sent.Load(), h.dropped.Load()
}

// Handler upgrades loopback requests to a websocket observer session.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		c := &client{id: uuid.NewString(), conn: conn, out: make(chan []byte, h.cfg.SendQueue)}
		if !h.add(c) {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			conn.Close()
			return
		}
		h.log.Info("observer connected", zap.String("session", c.id), zap.String("remote", r.RemoteAddr))
		h.serve(c)
		h.remove(c.id)
		h.log.Info("observer disconnected", zap.String("session", c.id))
	}
}

func (h *Hub) serve(c *client) {
	defer c.conn.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b, ok := <-c.out:
				if !ok {
					_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
					writeErr <- nil
					return
				}
				_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Inbound frames are read only to notice the close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-readDone:
		cancel()
		<-writeErr
	case err := <-writeErr:
		if err != nil {
			h.log.Debug("observer write failed", zap.String("session", c.id), zap.Error(err))
		}
		c.conn.Close()
		<-readDone
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.out)
	}
}

// Close disconnects every observer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.out)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if hp, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = hp
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
