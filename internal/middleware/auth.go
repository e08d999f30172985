package middleware

import (
	"context"
	"net/http"
	"strings"

	"deskpet-sync/internal/services"
)

type contextKey string

const petIDKey contextKey = "pet_id"

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(petService *services.PetService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token := parts[1]
			petID, err := petService.ValidateJWT(token)
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), petIDKey, petID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPetID extracts the authenticated pet ID from context
func GetPetID(ctx context.Context) string {
	petID, ok := ctx.Value(petIDKey).(string)
	if !ok {
		return ""
	}
	return petID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
