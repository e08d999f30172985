package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"deskpet-sync/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// PushMessage represents a message on the push channel
type PushMessage struct {
	Type  string        `json:"type"`
	Visit *models.Visit `json:"visit,omitempty"`
	Error string        `json:"error,omitempty"`
}

// Hub manages live push subscriptions, one connection per pet id.
// A subscription only ever receives insert notifications for visits
// addressed to that pet; everything else goes over REST.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewHub creates a new push hub
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register registers a subscription for a pet, replacing any existing one
func (h *Hub) Register(petID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[petID]; ok {
		existing.Close()
	}
	h.connections[petID] = conn

	log.Info().Str("pet_id", petID).Msg("Push subscription registered")
}

// Unregister removes a pet's subscription if conn is still the active one
func (h *Hub) Unregister(petID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.connections[petID]; ok && current == conn {
		current.Close()
		delete(h.connections, petID)
		log.Info().Str("pet_id", petID).Msg("Push subscription unregistered")
	}
}

// SendToPet sends a message to a pet's subscription
func (h *Hub) SendToPet(petID string, message PushMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[petID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("pet %s has no subscription", petID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(petID, conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsSubscribed checks whether a pet has a live subscription
func (h *Hub) IsSubscribed(petID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[petID]
	return exists
}

// NotifyVisit pushes a visit-insert notification to the recipient.
// Best effort only; the polling fallback covers disconnected clients.
func (h *Hub) NotifyVisit(visit *models.Visit) {
	if !h.IsSubscribed(visit.ToPetID) {
		return
	}

	message := PushMessage{
		Type:  "visit",
		Visit: visit,
	}
	if err := h.SendToPet(visit.ToPetID, message); err != nil {
		log.Error().
			Err(err).
			Str("pet_id", visit.ToPetID).
			Str("visit_id", visit.ID).
			Msg("Failed to push visit notification")
	}
}
