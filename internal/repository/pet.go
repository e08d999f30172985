package repository

import (
	"context"
	"fmt"

	"deskpet-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PetRepository handles database operations for pets
type PetRepository struct {
	db *pgxpool.Pool
}

// NewPetRepository creates a new pet repository
func NewPetRepository(db *pgxpool.Pool) *PetRepository {
	return &PetRepository{db: db}
}

// Create creates a new pet
func (r *PetRepository) Create(ctx context.Context, pet *models.Pet) error {
	query := `
		INSERT INTO pets (id, code, name, breed, color, online, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		pet.ID, pet.Code, pet.Name, pet.Breed, pet.Color,
		pet.Online, pet.LastSeen, pet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pet: %w", err)
	}
	return nil
}

// GetByID retrieves a pet by ID
func (r *PetRepository) GetByID(ctx context.Context, id string) (*models.Pet, error) {
	query := `
		SELECT id, code, name, breed, color, online, last_seen, created_at
		FROM pets
		WHERE id = $1
	`
	var pet models.Pet
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pet.ID, &pet.Code, &pet.Name, &pet.Breed, &pet.Color,
		&pet.Online, &pet.LastSeen, &pet.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("pet not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}
	return &pet, nil
}

// GetByCode retrieves a pet by its shareable code
func (r *PetRepository) GetByCode(ctx context.Context, code string) (*models.Pet, error) {
	query := `
		SELECT id, code, name, breed, color, online, last_seen, created_at
		FROM pets
		WHERE code = $1
	`
	var pet models.Pet
	err := r.db.QueryRow(ctx, query, code).Scan(
		&pet.ID, &pet.Code, &pet.Name, &pet.Breed, &pet.Color,
		&pet.Online, &pet.LastSeen, &pet.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("pet not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get pet by code: %w", err)
	}
	return &pet, nil
}

// CodeExists checks if a code already exists
func (r *PetRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM pets WHERE code = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return exists, nil
}

// UpdateName renames a pet
func (r *PetRepository) UpdateName(ctx context.Context, petID, name string) error {
	query := `UPDATE pets SET name = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, name, petID)
	if err != nil {
		return fmt.Errorf("failed to update pet name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pet not found")
	}
	return nil
}

// UpdatePresence asserts a pet's presence. When online, last_seen is
// bumped to now; appearance rides along so a missed rename self-heals.
func (r *PetRepository) UpdatePresence(ctx context.Context, petID string, online bool, name, breed, color string) error {
	query := `
		UPDATE pets
		SET online = $1,
		    last_seen = CASE WHEN $1 THEN now() ELSE last_seen END,
		    name = COALESCE(NULLIF($2, ''), name),
		    breed = COALESCE(NULLIF($3, ''), breed),
		    color = COALESCE(NULLIF($4, ''), color)
		WHERE id = $5
	`
	result, err := r.db.Exec(ctx, query, online, name, breed, color, petID)
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pet not found")
	}
	return nil
}
