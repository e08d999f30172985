package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskpet-sync/internal/models"
	"deskpet-sync/internal/repository"
)

// Friendship errors surfaced to handlers for status-code mapping
var (
	ErrSelfCode      = errors.New("cannot add your own code")
	ErrPeerNotFound  = errors.New("pet not found")
	ErrAlreadyFriend = errors.New("friend already added")
)

// FriendshipService handles friendship edge business logic
type FriendshipService struct {
	friendRepo *repository.FriendshipRepository
	petRepo    *repository.PetRepository
}

// NewFriendshipService creates a new friendship service
func NewFriendshipService(friendRepo *repository.FriendshipRepository, petRepo *repository.PetRepository) *FriendshipService {
	return &FriendshipService{
		friendRepo: friendRepo,
		petRepo:    petRepo,
	}
}

// AddByCode inserts the caller's directional edge toward the pet owning
// the code. Order matters: self check, resolve, duplicate check, insert.
func (s *FriendshipService) AddByCode(ctx context.Context, petID, code string) (*models.Pet, error) {
	caller, err := s.petRepo.GetByID(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}
	if caller.Code == code {
		return nil, ErrSelfCode
	}

	peer, err := s.petRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, ErrPeerNotFound
	}

	exists, err := s.friendRepo.Exists(ctx, petID, peer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing edge: %w", err)
	}
	if exists {
		return nil, ErrAlreadyFriend
	}

	edge := &models.Friendship{
		PetID:     petID,
		FriendID:  peer.ID,
		CreatedAt: time.Now(),
	}
	if err := s.friendRepo.Create(ctx, edge); err != nil {
		return nil, fmt.Errorf("failed to create edge: %w", err)
	}

	return peer, nil
}

// Accept inserts the caller's directional edge toward a known peer id.
// Accepting is just the reverse unilateral add; no transaction is needed
// because mutuality is derived from the pair of rows at read time.
func (s *FriendshipService) Accept(ctx context.Context, petID, peerID string) error {
	if petID == peerID {
		return ErrSelfCode
	}

	if _, err := s.petRepo.GetByID(ctx, peerID); err != nil {
		return ErrPeerNotFound
	}

	exists, err := s.friendRepo.Exists(ctx, petID, peerID)
	if err != nil {
		return fmt.Errorf("failed to check existing edge: %w", err)
	}
	if exists {
		return ErrAlreadyFriend
	}

	edge := &models.Friendship{
		PetID:     petID,
		FriendID:  peerID,
		CreatedAt: time.Now(),
	}
	if err := s.friendRepo.Create(ctx, edge); err != nil {
		return fmt.Errorf("failed to create edge: %w", err)
	}

	return nil
}

// Remove deletes only the caller's own edge. The peer's reverse edge
// survives, so from their side the status degrades to pending.
func (s *FriendshipService) Remove(ctx context.Context, petID, peerID string) error {
	if err := s.friendRepo.Delete(ctx, petID, peerID); err != nil {
		return fmt.Errorf("failed to remove edge: %w", err)
	}
	return nil
}

// List returns the edge union for a pet
func (s *FriendshipService) List(ctx context.Context, petID string) ([]models.Friend, error) {
	friends, err := s.friendRepo.ListForPet(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}
