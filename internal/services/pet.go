package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"deskpet-sync/internal/models"
	"deskpet-sync/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Codes look like "KQ4N-7XWM". The alphabet drops 0, O, 1 and I so a
	// code read over a shoulder or a voice call survives transcription.
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeGroupLen  = 4
	codeGroups    = 2
	codeSeparator = "-"
	jwtExpDays    = 365
)

// PetService handles pet identity business logic
type PetService struct {
	petRepo   *repository.PetRepository
	jwtSecret string
}

// NewPetService creates a new pet service
func NewPetService(petRepo *repository.PetRepository, jwtSecret string) *PetService {
	return &PetService{
		petRepo:   petRepo,
		jwtSecret: jwtSecret,
	}
}

// GenerateUniqueCode generates a unique shareable pet code. A collision
// is a retry, never corruption: the insert only happens after the code
// checked free, and the unique constraint backstops the race.
func (s *PetService) GenerateUniqueCode(ctx context.Context) (string, error) {
	maxAttempts := 10
	for i := 0; i < maxAttempts; i++ {
		code := GenerateCode()
		exists, err := s.petRepo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique code after %d attempts", maxAttempts)
}

// GenerateCode generates a random pet code in XXXX-XXXX form
func GenerateCode() string {
	code := make([]byte, 0, codeGroups*codeGroupLen+len(codeSeparator))
	for g := 0; g < codeGroups; g++ {
		if g > 0 {
			code = append(code, codeSeparator...)
		}
		for i := 0; i < codeGroupLen; i++ {
			n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			code = append(code, codeAlphabet[n.Int64()])
		}
	}
	return string(code)
}

// GenerateJWT generates a JWT token for a pet
func (s *PetService) GenerateJWT(petID string) (string, error) {
	claims := jwt.MapClaims{
		"pet_id": petID,
		"exp":    time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":    time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the pet ID
func (s *PetService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	petID, ok := claims["pet_id"].(string)
	if !ok {
		return "", fmt.Errorf("pet_id not found in token")
	}

	return petID, nil
}

// Register creates a new pet identity and returns it with its session
// token. The pet starts offline; the first heartbeat flips it online.
func (s *PetService) Register(ctx context.Context, name, breed, color string) (*models.Pet, string, error) {
	code, err := s.GenerateUniqueCode(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate code: %w", err)
	}

	petID := uuid.New().String()

	token, err := s.GenerateJWT(petID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	pet := &models.Pet{
		ID:        petID,
		Code:      code,
		Name:      name,
		Breed:     breed,
		Color:     color,
		Online:    false,
		LastSeen:  time.Now(),
		CreatedAt: time.Now(),
	}

	if err := s.petRepo.Create(ctx, pet); err != nil {
		return nil, "", fmt.Errorf("failed to create pet: %w", err)
	}

	return pet, token, nil
}

// Rename updates a pet's display name
func (s *PetService) Rename(ctx context.Context, petID, name string) error {
	if err := s.petRepo.UpdateName(ctx, petID, name); err != nil {
		return fmt.Errorf("failed to rename pet: %w", err)
	}
	return nil
}

// UpdatePresence asserts a pet's online state and appearance
func (s *PetService) UpdatePresence(ctx context.Context, petID string, online bool, name, breed, color string) error {
	if err := s.petRepo.UpdatePresence(ctx, petID, online, name, breed, color); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	return nil
}
