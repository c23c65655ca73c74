package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sulafhq/sulaf-backend/internal/logger"
)

const writeTimeout = 5 * time.Second

// Hub fans job lifecycle events out to every connected client. Delivery is
// best effort: a slow or dead connection is dropped, never waited on.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

type event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	Time    time.Time   `json:"time"`
}

func NewHub(baseLog *logger.Logger) *Hub {
	return &Hub{
		log: baseLog.With("service", "WSHub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades the request and keeps the connection registered until the
// peer goes away. Inbound frames are drained and discarded.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	h.register(conn)
	defer h.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends the event to every connection. Failed writes drop the
// connection.
func (h *Hub) Broadcast(name string, payload interface{}) {
	msg := event{Event: name, Payload: payload, Time: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug("Dropping dead websocket connection", "error", err)
			_ = conn.Close()
			delete(h.conns, conn)
		}
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("WebSocket client connected", "clients", h.ClientCount())
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}
