package petsync

import (
	"context"
	"testing"
	"time"

	"deskpet-sync/internal/models"
)

func TestFriendStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		outgoing bool
		incoming bool
		want     models.FriendStatus
	}{
		{"both edges means mutual", true, true, models.StatusMutual},
		{"only own edge means pending out", true, false, models.StatusPendingOut},
		{"only their edge means pending in", false, true, models.StatusPendingIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.Friend{Outgoing: tt.outgoing, Incoming: tt.incoming}
			if got := f.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMutualStatusIsSymmetric(t *testing.T) {
	// A's view of B and B's view of A after both added each other:
	// outgoing/incoming swap, but classification agrees
	aView := models.Friend{Outgoing: true, Incoming: true}
	bView := models.Friend{Outgoing: true, Incoming: true}
	if aView.Status() != models.StatusMutual || bView.Status() != models.StatusMutual {
		t.Error("both sides of a double-added pair must classify mutual")
	}

	// Only A added B: A sees pending out, B sees pending in
	aOnly := models.Friend{Outgoing: true, Incoming: false}
	bOnly := models.Friend{Outgoing: false, Incoming: true}
	if aOnly.Status() != models.StatusPendingOut {
		t.Errorf("A's view = %s, want pending_out", aOnly.Status())
	}
	if bOnly.Status() != models.StatusPendingIn {
		t.Errorf("B's view = %s, want pending_in", bOnly.Status())
	}
}

func TestEffectiveOnline(t *testing.T) {
	now := time.Unix(10_000, 0)
	window := 2 * time.Minute

	tests := []struct {
		name     string
		online   bool
		lastSeen time.Time
		want     bool
	}{
		{"online with fresh heartbeat", true, now.Add(-30 * time.Second), true},
		{"online flag but stale heartbeat", true, now.Add(-3 * time.Minute), false},
		{"offline flag with fresh heartbeat", false, now.Add(-10 * time.Second), false},
		{"exactly at the window edge", true, now.Add(-window), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pet := models.Pet{Online: tt.online, LastSeen: tt.lastSeen}
			if got := models.EffectiveOnline(pet, now, window); got != tt.want {
				t.Errorf("EffectiveOnline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddFriendRejectsOwnCodeLocally(t *testing.T) {
	api := &fakeAPI{}
	fl := NewFriendList(api, 2*time.Minute)

	_, err := fl.Add(context.Background(), "ABCD-EFGH", "abcd-efgh")
	if err != ErrSelfCode {
		t.Fatalf("Add(own code) error = %v, want ErrSelfCode", err)
	}
	if api.addCalls != 0 {
		t.Errorf("AddFriend hit the network %d times, want 0", api.addCalls)
	}
}

func TestAddFriendRejectsMalformedCode(t *testing.T) {
	api := &fakeAPI{}
	fl := NewFriendList(api, 2*time.Minute)

	for _, code := range []string{"", "short", "ABCDEFGH", "AB1D-EFGH", "AOCD-EFGH", "ABCD-EFGH-XXXX"} {
		if _, err := fl.Add(context.Background(), "WXYZ-WXYZ", code); err != ErrInvalidCode {
			t.Errorf("Add(%q) error = %v, want ErrInvalidCode", code, err)
		}
	}
	if api.addCalls != 0 {
		t.Errorf("AddFriend hit the network %d times, want 0", api.addCalls)
	}
}

func TestAddFriendNormalizesCode(t *testing.T) {
	api := &fakeAPI{addPeer: models.Pet{ID: "peer-1", Name: "Buddy"}}
	fl := NewFriendList(api, 2*time.Minute)

	peer, err := fl.Add(context.Background(), "WXYZ-WXYZ", "  abcd-efgh ")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if peer.ID != "peer-1" {
		t.Errorf("peer id = %s, want peer-1", peer.ID)
	}
	if api.addCalls != 1 {
		t.Errorf("AddFriend calls = %d, want 1", api.addCalls)
	}
}

func TestRefreshReplacesListingWholesale(t *testing.T) {
	api := &fakeAPI{friends: []models.Friend{
		{Pet: models.Pet{ID: "a", Name: "Alpha"}, Outgoing: true, Incoming: true},
		{Pet: models.Pet{ID: "b", Name: "Beta"}, Outgoing: true},
	}}
	fl := NewFriendList(api, 2*time.Minute)

	if err := fl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := len(fl.Friends()); got != 2 {
		t.Fatalf("friends = %d, want 2", got)
	}

	// The peer removed their edge server-side; a refresh must not leave
	// the stale mutual classification behind
	api.mu.Lock()
	api.friends = []models.Friend{
		{Pet: models.Pet{ID: "a", Name: "Alpha"}, Outgoing: true, Incoming: false},
	}
	api.mu.Unlock()

	if err := fl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	views := fl.Friends()
	if len(views) != 1 {
		t.Fatalf("friends after refresh = %d, want 1", len(views))
	}
	if views[0].Status != models.StatusPendingOut {
		t.Errorf("status after unfriend = %s, want pending_out", views[0].Status)
	}
}

func TestOnlineMutualsFiltersStatusAndPresence(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{friends: []models.Friend{
		{Pet: models.Pet{ID: "a", Online: true, LastSeen: now}, Outgoing: true, Incoming: true},
		{Pet: models.Pet{ID: "b", Online: true, LastSeen: now.Add(-time.Hour)}, Outgoing: true, Incoming: true},
		{Pet: models.Pet{ID: "c", Online: true, LastSeen: now}, Outgoing: true, Incoming: false},
		{Pet: models.Pet{ID: "d", Online: false, LastSeen: now}, Outgoing: true, Incoming: true},
	}}
	fl := NewFriendList(api, 2*time.Minute)
	if err := fl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	mutuals := fl.OnlineMutuals()
	if len(mutuals) != 1 || mutuals[0].ID != "a" {
		t.Errorf("OnlineMutuals() = %v, want just pet a", mutuals)
	}
}

func TestValidCode(t *testing.T) {
	valid := []string{"ABCD-EFGH", "2345-6789", "KQ4N-7XWM"}
	for _, code := range valid {
		if !ValidCode(code) {
			t.Errorf("ValidCode(%q) = false, want true", code)
		}
	}

	// Ambiguous glyphs are excluded from the alphabet
	invalid := []string{"ABC0-EFGH", "ABCO-EFGH", "ABC1-EFGH", "ABCI-EFGH", "abcd-efgh"}
	for _, code := range invalid {
		if ValidCode(code) {
			t.Errorf("ValidCode(%q) = true, want false", code)
		}
	}
}
