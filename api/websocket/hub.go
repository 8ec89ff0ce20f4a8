package websocket

import (
	"sync"

	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/internal/metrics"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
)

const defaultBroadcastBuffer = 256

// Hub fans pipeline events out to connected websocket clients. Clients can
// narrow their stream to specific event types; by default they get
// everything.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	settings   settings
}

type settings struct {
	maxConnections int
	clientBuffer   int
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	broadcastBuffer := cfg.BroadcastBuffer
	if broadcastBuffer <= 0 {
		broadcastBuffer = defaultBroadcastBuffer
	}
	clientBuffer := cfg.ClientBuffer
	if clientBuffer <= 0 {
		clientBuffer = 256
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		settings: settings{
			maxConnections: cfg.MaxConnections,
			clientBuffer:   clientBuffer,
		},
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().SetWSClients(h.ClientCount())
			logger.Infof("WebSocket client connected (total: %d)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.Get().SetWSClients(h.ClientCount())
			logger.Infof("WebSocket client disconnected (total: %d)", h.ClientCount())

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

// BroadcastFiltered delivers a message only to clients whose type filter
// accepts the event type.
func (h *Hub) BroadcastFiltered(eventType string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(eventType) {
			continue
		}
		select {
		case client.send <- message:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Full reports whether the connection limit is reached.
func (h *Hub) Full() bool {
	if h.settings.maxConnections <= 0 {
		return false
	}
	return h.ClientCount() >= h.settings.maxConnections
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
