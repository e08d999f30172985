package repository

import (
	"context"
	"fmt"

	"deskpet-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VisitRepository handles database operations for visits
type VisitRepository struct {
	db *pgxpool.Pool
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *pgxpool.Pool) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create inserts a new visit
func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	query := `
		INSERT INTO visits (id, from_pet_id, to_pet_id, message, name, breed, color, consumed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		visit.ID, visit.FromPetID, visit.ToPetID, visit.Message,
		visit.Name, visit.Breed, visit.Color, visit.Consumed, visit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// LatestUnconsumed returns the single most recent unconsumed visit
// addressed to the pet, or nil when there is none. This backs the
// polling fallback channel.
func (r *VisitRepository) LatestUnconsumed(ctx context.Context, toPetID string) (*models.Visit, error) {
	query := `
		SELECT id, from_pet_id, to_pet_id, message, name, breed, color, consumed, created_at
		FROM visits
		WHERE to_pet_id = $1 AND consumed = false
		ORDER BY created_at DESC
		LIMIT 1
	`
	var visit models.Visit
	err := r.db.QueryRow(ctx, query, toPetID).Scan(
		&visit.ID, &visit.FromPetID, &visit.ToPetID, &visit.Message,
		&visit.Name, &visit.Breed, &visit.Color, &visit.Consumed, &visit.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest visit: %w", err)
	}
	return &visit, nil
}

// GetByID retrieves a visit by ID
func (r *VisitRepository) GetByID(ctx context.Context, id string) (*models.Visit, error) {
	query := `
		SELECT id, from_pet_id, to_pet_id, message, name, breed, color, consumed, created_at
		FROM visits
		WHERE id = $1
	`
	var visit models.Visit
	err := r.db.QueryRow(ctx, query, id).Scan(
		&visit.ID, &visit.FromPetID, &visit.ToPetID, &visit.Message,
		&visit.Name, &visit.Breed, &visit.Color, &visit.Consumed, &visit.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("visit not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

// MarkConsumed flips the consumed flag. The flag is one-way and marking
// an already-consumed visit is a no-op, not an error.
func (r *VisitRepository) MarkConsumed(ctx context.Context, id string) error {
	query := `UPDATE visits SET consumed = true WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark visit consumed: %w", err)
	}
	return nil
}
