package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"deskpet-sync/internal/middleware"
	"deskpet-sync/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FriendshipHandler handles friendship HTTP requests
type FriendshipHandler struct {
	friendshipService *services.FriendshipService
}

// NewFriendshipHandler creates a new friendship handler
func NewFriendshipHandler(friendshipService *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService: friendshipService,
	}
}

// AddFriendRequest represents the request body for adding a friend by code
type AddFriendRequest struct {
	Code string `json:"code"`
}

// AddFriend handles POST /api/v1/friends
func (h *FriendshipHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)

	var req AddFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	peer, err := h.friendshipService.AddByCode(ctx, petID, req.Code)
	if err != nil {
		log.Error().
			Err(err).
			Str("pet_id", petID).
			Str("code", req.Code).
			Msg("Failed to add friend")

		respondError(w, err.Error(), friendshipStatusCode(err))
		return
	}

	log.Info().
		Str("pet_id", petID).
		Str("peer_id", peer.ID).
		Msg("Friend edge added")

	respondJSON(w, peer, http.StatusOK)
}

// AcceptFriend handles POST /api/v1/friends/{peer_id}/accept
func (h *FriendshipHandler) AcceptFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)
	peerID := chi.URLParam(r, "peer_id")

	if peerID == "" {
		respondError(w, "peer_id is required", http.StatusBadRequest)
		return
	}

	if err := h.friendshipService.Accept(ctx, petID, peerID); err != nil {
		log.Error().
			Err(err).
			Str("pet_id", petID).
			Str("peer_id", peerID).
			Msg("Failed to accept friend")

		respondError(w, err.Error(), friendshipStatusCode(err))
		return
	}

	log.Info().
		Str("pet_id", petID).
		Str("peer_id", peerID).
		Msg("Friend accepted")

	w.WriteHeader(http.StatusNoContent)
}

// RemoveFriend handles DELETE /api/v1/friends/{peer_id}
func (h *FriendshipHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)
	peerID := chi.URLParam(r, "peer_id")

	if peerID == "" {
		respondError(w, "peer_id is required", http.StatusBadRequest)
		return
	}

	if err := h.friendshipService.Remove(ctx, petID, peerID); err != nil {
		log.Error().
			Err(err).
			Str("pet_id", petID).
			Str("peer_id", peerID).
			Msg("Failed to remove friend")

		respondError(w, err.Error(), http.StatusNotFound)
		return
	}

	log.Info().
		Str("pet_id", petID).
		Str("peer_id", peerID).
		Msg("Friend edge removed")

	w.WriteHeader(http.StatusNoContent)
}

// ListFriends handles GET /api/v1/friends
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)

	friends, err := h.friendshipService.List(ctx, petID)
	if err != nil {
		log.Error().Err(err).Str("pet_id", petID).Msg("Failed to list friends")
		respondError(w, "Failed to list friends", http.StatusInternalServerError)
		return
	}

	respondJSON(w, friends, http.StatusOK)
}

// friendshipStatusCode maps friendship service errors to HTTP status codes
func friendshipStatusCode(err error) int {
	switch {
	case errors.Is(err, services.ErrSelfCode):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPeerNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyFriend):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
