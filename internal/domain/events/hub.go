package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Event is broadcast to connected admin consoles after a settlement commits
type Event struct {
	Entity string          `json:"entity"` // payment or wallet_transaction
	ID     uuid.UUID       `json:"id"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

// Publisher is what settlement services see. Publishing is fire-and-forget:
// a slow console must never hold up a settlement.
type Publisher interface {
	Publish(e Event)
}

const writeWait = 5 * time.Second

// Hub fans settlement events out to connected websocket clients
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Serve upgrades the connection and keeps it registered until it closes
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	log.Info().Int("clients", count).Msg("admin console connected")

	// Drain incoming frames; the feed is one-way
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish broadcasts an event to every connected client. Clients that fail
// the write deadline are dropped.
func (h *Hub) Publish(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal settlement event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients, conn)
}
