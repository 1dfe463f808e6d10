package websocket

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub maintains the set of active clients and broadcasts dashboard snapshots
// to them. Every client receives every message; there is no per-client view.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to fan out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Logger
	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", total).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// fanOut sends one message to every client
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, close and remove it
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
}
