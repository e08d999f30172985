package services

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerateCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

	for i := 0; i < 200; i++ {
		code := GenerateCode()
		if !pattern.MatchString(code) {
			t.Fatalf("GenerateCode() = %q, want XXXX-XXXX over the safe alphabet", code)
		}
	}
}

func TestGenerateCodeExcludesAmbiguousGlyphs(t *testing.T) {
	for _, r := range "0O1I" {
		if strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("alphabet contains ambiguous glyph %q", r)
		}
	}
	if len(codeAlphabet) != 32 {
		t.Errorf("alphabet length = %d, want 32", len(codeAlphabet))
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[GenerateCode()] = true
	}
	// 32^8 combinations; 50 draws colliding down to a handful would be broken randomness
	if len(seen) < 45 {
		t.Errorf("50 draws produced only %d distinct codes", len(seen))
	}
}

func TestJWTRoundTrip(t *testing.T) {
	s := NewPetService(nil, "test-secret")

	token, err := s.GenerateJWT("pet-123")
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	petID, err := s.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT() error = %v", err)
	}
	if petID != "pet-123" {
		t.Errorf("ValidateJWT() pet id = %q, want pet-123", petID)
	}
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	signer := NewPetService(nil, "secret-a")
	verifier := NewPetService(nil, "secret-b")

	token, err := signer.GenerateJWT("pet-123")
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	if _, err := verifier.ValidateJWT(token); err == nil {
		t.Error("ValidateJWT() accepted a token signed with another secret")
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	s := NewPetService(nil, "test-secret")
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := s.ValidateJWT(token); err == nil {
			t.Errorf("ValidateJWT(%q) accepted malformed input", token)
		}
	}
}
