// Package feed streams assessment events to WebSocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"TriRecover/internal/domain/models"
	"TriRecover/pkg/logger"
)

// Config tunes the hub.
type Config struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
	PongTimeout  time.Duration
}

// Option configures Hub.
type Option func(*Config)

func WithSendBuffer(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SendBuffer = n
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PingInterval = d
			c.PongTimeout = d * 2
		}
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected subscriber. All membership changes
// and broadcasts go through the single Run goroutine; a subscriber that
// cannot keep up is dropped.
type Hub struct {
	cfg      Config
	log      *logger.Logger
	upgrader websocket.Upgrader

	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan []byte
	clients    map[*subscriber]struct{}
	count      atomic.Int32
	dropped    atomic.Int64
	done       chan struct{}
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(l *logger.Logger, opts ...Option) *Hub {
	cfg := Config{
		SendBuffer:   32,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		PongTimeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Hub{
		cfg: cfg,
		log: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*subscriber]struct{}),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for s := range h.clients {
				h.remove(s)
			}
			return
		case s := <-h.register:
			h.clients[s] = struct{}{}
			h.count.Store(int32(len(h.clients)))
		case s := <-h.unregister:
			h.remove(s)
		case msg := <-h.broadcast:
			for s := range h.clients {
				select {
				case s.send <- msg:
				default:
					h.dropped.Add(1)
					h.remove(s)
				}
			}
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	if _, ok := h.clients[s]; !ok {
		return
	}
	delete(h.clients, s)
	close(s.send)
	h.count.Store(int32(len(h.clients)))
}

// Broadcast queues ev for every subscriber. It never blocks; events are
// dropped when the hub is saturated or stopped.
func (h *Hub) Broadcast(ev models.AssessmentEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("feed encode failed", logger.Error(err))
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.dropped.Add(1)
	}
}

// Clients reports connected subscribers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped counts events or subscribers dropped for backpressure.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// ServeWS upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return nil
	}
	s := &subscriber{conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}

	select {
	case h.register <- s:
	case <-h.done:
		_ = conn.Close()
		return nil
	}
	h.log.Debug("feed subscriber joined", logger.String("remote", c.RealIP()))

	go h.writePump(s)
	h.readPump(s)
	return nil
}

// readPump only watches for close and pong frames; subscribers never send data.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
