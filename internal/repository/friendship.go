package repository

import (
	"context"
	"fmt"

	"deskpet-sync/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendshipRepository handles database operations for friendship edges
type FriendshipRepository struct {
	db *pgxpool.Pool
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *pgxpool.Pool) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

// Create inserts a directional edge
func (r *FriendshipRepository) Create(ctx context.Context, edge *models.Friendship) error {
	query := `
		INSERT INTO friendships (pet_id, friend_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(ctx, query, edge.PetID, edge.FriendID, edge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// Exists checks whether the directional edge (petID -> friendID) exists
func (r *FriendshipRepository) Exists(ctx context.Context, petID, friendID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE pet_id = $1 AND friend_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, petID, friendID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check friendship existence: %w", err)
	}
	return exists, nil
}

// Delete removes the directional edge owned by petID. The reverse edge
// is untouched, so unfriending degrades mutual -> pending on the other side.
func (r *FriendshipRepository) Delete(ctx context.Context, petID, friendID string) error {
	query := `DELETE FROM friendships WHERE pet_id = $1 AND friend_id = $2`
	result, err := r.db.Exec(ctx, query, petID, friendID)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friendship not found")
	}
	return nil
}

// ListForPet returns every peer reachable through an outgoing or incoming
// edge, with flags for which edges exist. Recomputed wholesale on each
// call; status classification happens client-side.
func (r *FriendshipRepository) ListForPet(ctx context.Context, petID string) ([]models.Friend, error) {
	query := `
		SELECT p.id, p.code, p.name, p.breed, p.color, p.online, p.last_seen, p.created_at,
		       EXISTS(SELECT 1 FROM friendships f WHERE f.pet_id = $1 AND f.friend_id = p.id) AS outgoing,
		       EXISTS(SELECT 1 FROM friendships f WHERE f.pet_id = p.id AND f.friend_id = $1) AS incoming
		FROM pets p
		WHERE p.id IN (
			SELECT friend_id FROM friendships WHERE pet_id = $1
			UNION
			SELECT pet_id FROM friendships WHERE friend_id = $1
		)
		ORDER BY p.name, p.id
	`
	rows, err := r.db.Query(ctx, query, petID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		err := rows.Scan(
			&f.Pet.ID, &f.Pet.Code, &f.Pet.Name, &f.Pet.Breed, &f.Pet.Color,
			&f.Pet.Online, &f.Pet.LastSeen, &f.Pet.CreatedAt,
			&f.Outgoing, &f.Incoming,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}

	return friends, nil
}
