package handlers

import (
	"net/http"

	"deskpet-sync/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // desktop clients connect from arbitrary origins
	},
}

// WebSocketHandler handles push subscriptions
type WebSocketHandler struct {
	hub        *services.Hub
	petService *services.PetService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.Hub, petService *services.PetService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		petService: petService,
	}
}

// HandleWebSocket handles GET /ws?token=. The subscription is one-way:
// the server pushes visit-insert notifications, the client only reads.
// Everything the client writes goes over REST instead.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	petID, err := h.petService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(petID, conn)
	defer h.hub.Unregister(petID, conn)

	log.Info().Str("pet_id", petID).Msg("Push subscription established")

	// Read loop exists only to observe the close; inbound frames are dropped
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("pet_id", petID).Msg("WebSocket error")
			}
			return
		}
	}
}
