package handlers

import (
	"encoding/json"
	"net/http"

	"deskpet-sync/internal/middleware"
	"deskpet-sync/internal/models"
	"deskpet-sync/internal/services"

	"github.com/rs/zerolog/log"
)

// PetHandler handles pet identity HTTP requests
type PetHandler struct {
	petService *services.PetService
}

// NewPetHandler creates a new pet handler
func NewPetHandler(petService *services.PetService) *PetHandler {
	return &PetHandler{
		petService: petService,
	}
}

// RegisterRequest represents the request body for registering a pet
type RegisterRequest struct {
	Name  string `json:"name"`
	Breed string `json:"breed"`
	Color string `json:"color"`
}

// RegisterResponse carries the new pet and its session token
type RegisterResponse struct {
	Pet   *models.Pet `json:"pet"`
	Token string      `json:"token"`
}

// Register handles POST /api/v1/pets
func (h *PetHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}

	pet, token, err := h.petService.Register(ctx, req.Name, req.Breed, req.Color)
	if err != nil {
		log.Error().Err(err).Msg("Failed to register pet")
		respondError(w, "Failed to register pet", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("pet_id", pet.ID).
		Str("code", pet.Code).
		Str("name", pet.Name).
		Msg("Pet registered")

	respondJSON(w, RegisterResponse{Pet: pet, Token: token}, http.StatusOK)
}

// RenameRequest represents the request body for renaming a pet
type RenameRequest struct {
	Name string `json:"name"`
}

// Rename handles PATCH /api/v1/pets/me
func (h *PetHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.petService.Rename(ctx, petID, req.Name); err != nil {
		log.Error().Err(err).Str("pet_id", petID).Msg("Failed to rename pet")
		respondError(w, "Failed to rename pet", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PresenceRequest represents the request body for a presence assertion
type PresenceRequest struct {
	Online bool   `json:"online"`
	Name   string `json:"name"`
	Breed  string `json:"breed"`
	Color  string `json:"color"`
}

// UpdatePresence handles PUT /api/v1/presence
func (h *PetHandler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)

	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.petService.UpdatePresence(ctx, petID, req.Online, req.Name, req.Breed, req.Color); err != nil {
		log.Error().Err(err).Str("pet_id", petID).Msg("Failed to update presence")
		respondError(w, "Failed to update presence", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
