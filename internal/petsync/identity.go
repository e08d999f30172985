package petsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deskpet-sync/internal/models"
)

// Identity is the locally persisted registration record
type Identity struct {
	Pet   models.Pet `json:"pet"`
	Token string     `json:"token"`
}

// IdentityStore persists the pet identity as a JSON file so it
// survives restarts. One identity per installation for its lifetime.
type IdentityStore struct {
	path string

	mu    sync.RWMutex
	ident *Identity
}

// NewIdentityStore creates a store backed by the given file path and
// loads any existing identity from it. A missing or unreadable file
// just means not registered yet.
func NewIdentityStore(path string) *IdentityStore {
	s := &IdentityStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var ident Identity
	if err := json.Unmarshal(data, &ident); err != nil || ident.Pet.ID == "" {
		return s
	}
	s.ident = &ident
	return s
}

// Registered reports whether an identity exists. This local flag is
// what makes registration idempotent at the client level.
func (s *IdentityStore) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ident != nil
}

// Identity returns the current identity, or false when not registered
func (s *IdentityStore) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ident == nil {
		return Identity{}, false
	}
	return *s.ident, true
}

// Save stores the identity and persists it
func (s *IdentityStore) Save(ident Identity) error {
	s.mu.Lock()
	s.ident = &ident
	s.mu.Unlock()
	return s.persist(ident)
}

// SetName updates the persisted display name
func (s *IdentityStore) SetName(name string) error {
	s.mu.Lock()
	if s.ident == nil {
		s.mu.Unlock()
		return ErrNotRegistered
	}
	s.ident.Pet.Name = name
	ident := *s.ident
	s.mu.Unlock()
	return s.persist(ident)
}

// Clear wipes the identity and removes the state file
func (s *IdentityStore) Clear() error {
	s.mu.Lock()
	s.ident = nil
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

func (s *IdentityStore) persist(ident Identity) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(ident, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
