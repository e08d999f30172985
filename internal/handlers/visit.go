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

// VisitHandler handles visit HTTP requests
type VisitHandler struct {
	visitService *services.VisitService
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(visitService *services.VisitService) *VisitHandler {
	return &VisitHandler{
		visitService: visitService,
	}
}

// SendVisit handles POST /api/v1/visits
func (h *VisitHandler) SendVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)

	var req services.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ToPetID == "" {
		respondError(w, "to_pet_id is required", http.StatusBadRequest)
		return
	}

	visit, err := h.visitService.Send(ctx, petID, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("pet_id", petID).
			Str("to_pet_id", req.ToPetID).
			Msg("Failed to send visit")

		statusCode := http.StatusInternalServerError
		if errors.Is(err, services.ErrNotParticipant) {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("visit_id", visit.ID).
		Str("from_pet_id", visit.FromPetID).
		Str("to_pet_id", visit.ToPetID).
		Msg("Visit sent")

	respondJSON(w, visit, http.StatusOK)
}

// LatestVisit handles GET /api/v1/visits/latest
func (h *VisitHandler) LatestVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)

	visit, err := h.visitService.LatestUnconsumed(ctx, petID)
	if err != nil {
		log.Error().Err(err).Str("pet_id", petID).Msg("Failed to poll latest visit")
		respondError(w, "Failed to poll latest visit", http.StatusInternalServerError)
		return
	}

	if visit == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, visit, http.StatusOK)
}

// ConsumeVisit handles POST /api/v1/visits/{visit_id}/consume
func (h *VisitHandler) ConsumeVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	petID := middleware.GetPetID(ctx)
	visitID := chi.URLParam(r, "visit_id")

	if visitID == "" {
		respondError(w, "visit_id is required", http.StatusBadRequest)
		return
	}

	if err := h.visitService.Consume(ctx, petID, visitID); err != nil {
		log.Error().
			Err(err).
			Str("pet_id", petID).
			Str("visit_id", visitID).
			Msg("Failed to consume visit")

		statusCode := http.StatusNotFound
		if errors.Is(err, services.ErrNotParticipant) {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
