package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS layer in front of this route.
		return true
	},
}

// Handler handles WebSocket upgrade requests
type Handler struct {
	hub     *Hub
	config  *config.Config
	logger  zerolog.Logger
	onOpen  func()
	onClose func()
}

// NewHandler creates a new WebSocket handler. onOpen and onClose are invoked
// per connection and may be nil; they exist for connection gauges.
func NewHandler(hub *Hub, cfg *config.Config, logger zerolog.Logger, onOpen, onClose func()) *Handler {
	return &Handler{
		hub:     hub,
		config:  cfg,
		logger:  logger,
		onOpen:  onOpen,
		onClose: onClose,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	if h.onOpen != nil {
		h.onOpen()
	}

	client := NewClient(h.hub, conn, h.config, h.logger)
	client.onClose = h.onClose
	h.hub.register <- client
	client.Start()
}
