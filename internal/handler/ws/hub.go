package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	applogger "WorthWatch/pkg/logger"
)

const writeTimeout = 5 * time.Second

// Hub fans dashboard events out to connected websocket clients. It
// implements the domain EventPublisher so it can sit next to the Kafka
// publisher in a fanout; clients on /ws/dashboard receive every
// dashboard_updated push as JSON.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  domrepo.Metrics
	log      *applogger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

func NewHub(metrics domrepo.Metrics, log *applogger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: metrics,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/dashboard", h.Serve)
}

// Serve upgrades the connection and keeps it registered until the peer
// disconnects. Clients are write-only; inbound frames are drained and
// dropped.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("ws upgrade failed", applogger.Error(err))
		}
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.log != nil {
		h.log.Info("ws client connected", applogger.Int("clients", n))
	}
	go h.drain(conn)
	return nil
}

func (h *Hub) drain(conn *websocket.Conn) {
	defer h.drop(conn)
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		conn.Close()
		if h.log != nil {
			h.log.Info("ws client disconnected", applogger.Int("clients", n))
		}
	}
}

// Publish broadcasts the event to every connected client. A client that
// cannot be written to is dropped; broadcast itself never fails.
func (h *Hub) Publish(ctx context.Context, e *models.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if werr := conn.WriteMessage(websocket.TextMessage, b); werr != nil {
			if h.metrics != nil {
				h.metrics.RecordError("ws_write")
			}
			h.drop(conn)
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordEventPublished("ws", e.Event)
		}
	}
	return nil
}

// Close disconnects all clients and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
		conn.Close()
	}
	return nil
}

var _ domrepo.EventPublisher = (*Hub)(nil)
