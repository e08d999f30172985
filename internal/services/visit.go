package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskpet-sync/internal/models"
	"deskpet-sync/internal/repository"

	"github.com/google/uuid"
)

// ErrNotParticipant is returned when the caller is on neither end of a visit
var ErrNotParticipant = errors.New("caller is not a participant of this visit")

// VisitService handles visit business logic
type VisitService struct {
	visitRepo *repository.VisitRepository
	hub       *Hub
}

// NewVisitService creates a new visit service
func NewVisitService(visitRepo *repository.VisitRepository, hub *Hub) *VisitService {
	return &VisitService{
		visitRepo: visitRepo,
		hub:       hub,
	}
}

// SendRequest carries one visit write. FromPetID may differ from the
// caller: the hangout reverse leg writes a visit on the friend's behalf
// using the friend's cached appearance.
type SendRequest struct {
	FromPetID string `json:"from_pet_id"`
	ToPetID   string `json:"to_pet_id"`
	Message   string `json:"message"`
	Name      string `json:"name"`
	Breed     string `json:"breed"`
	Color     string `json:"color"`
}

// Send inserts a visit and pushes an insert notification to the
// recipient's live subscription, if one exists. Push failure is not an
// error: the recipient's polling fallback picks the visit up.
func (s *VisitService) Send(ctx context.Context, callerID string, req SendRequest) (*models.Visit, error) {
	if req.FromPetID == "" {
		req.FromPetID = callerID
	}
	if req.FromPetID != callerID && req.ToPetID != callerID {
		return nil, ErrNotParticipant
	}

	visit := &models.Visit{
		ID:        uuid.New().String(),
		FromPetID: req.FromPetID,
		ToPetID:   req.ToPetID,
		Message:   req.Message,
		Name:      req.Name,
		Breed:     req.Breed,
		Color:     req.Color,
		Consumed:  false,
		CreatedAt: time.Now(),
	}

	if err := s.visitRepo.Create(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	s.hub.NotifyVisit(visit)

	return visit, nil
}

// LatestUnconsumed returns the most recent unconsumed visit for the pet
func (s *VisitService) LatestUnconsumed(ctx context.Context, petID string) (*models.Visit, error) {
	return s.visitRepo.LatestUnconsumed(ctx, petID)
}

// Consume marks a visit consumed. Only the recipient may consume, and
// consuming an already-consumed visit is a no-op.
func (s *VisitService) Consume(ctx context.Context, callerID, visitID string) error {
	visit, err := s.visitRepo.GetByID(ctx, visitID)
	if err != nil {
		return fmt.Errorf("visit not found: %w", err)
	}
	if visit.ToPetID != callerID {
		return ErrNotParticipant
	}
	if visit.Consumed {
		return nil
	}
	return s.visitRepo.MarkConsumed(ctx, visitID)
}
