package petsync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"deskpet-sync/internal/models"
)

func testIdentity() Identity {
	return Identity{
		Pet: models.Pet{
			ID:        "pet-1",
			Code:      "ABCD-EFGH",
			Name:      "Whiskers",
			Breed:     "normal",
			Color:     "orange",
			CreatedAt: time.Unix(1000, 0).UTC(),
		},
		Token: "jwt-token",
	}
}

func TestIdentitySurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "pet_state.json")

	s := NewIdentityStore(path)
	if s.Registered() {
		t.Fatal("fresh store must not be registered")
	}

	if err := s.Save(testIdentity()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Simulated restart: a new store over the same file
	s2 := NewIdentityStore(path)
	if !s2.Registered() {
		t.Fatal("identity did not survive the restart")
	}
	ident, ok := s2.Identity()
	if !ok {
		t.Fatal("Identity() reported missing")
	}
	if ident.Pet.Code != "ABCD-EFGH" || ident.Token != "jwt-token" {
		t.Errorf("loaded identity = %+v", ident)
	}
}

func TestIdentitySetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pet_state.json")
	s := NewIdentityStore(path)

	if err := s.SetName("Mittens"); err != ErrNotRegistered {
		t.Fatalf("SetName() before register error = %v, want ErrNotRegistered", err)
	}

	if err := s.Save(testIdentity()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.SetName("Mittens"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}

	s2 := NewIdentityStore(path)
	ident, _ := s2.Identity()
	if ident.Pet.Name != "Mittens" {
		t.Errorf("persisted name = %q, want Mittens", ident.Pet.Name)
	}
}

func TestIdentityClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pet_state.json")
	s := NewIdentityStore(path)

	if err := s.Save(testIdentity()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s.Registered() {
		t.Error("store still registered after Clear")
	}

	s2 := NewIdentityStore(path)
	if s2.Registered() {
		t.Error("state file still present after Clear")
	}

	// Clearing twice is fine
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestIdentityIgnoresCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pet_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewIdentityStore(path)
	if s.Registered() {
		t.Error("corrupt state file must read as not registered")
	}
}
