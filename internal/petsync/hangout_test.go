package petsync

import (
	"context"
	"testing"
	"time"

	"deskpet-sync/internal/models"
)

func newTestHangout(api *fakeAPI) *Hangout {
	fl := NewFriendList(api, 2*time.Minute)
	_ = fl.Refresh(context.Background())
	self := func() (Identity, bool) {
		return Identity{Pet: models.Pet{
			ID:    "me",
			Name:  "Whiskers",
			Breed: "normal",
			Color: "orange",
		}}, true
	}
	return NewHangout(api, fl, self)
}

func TestHangoutSendsSymmetricPair(t *testing.T) {
	api := &fakeAPI{
		friends: []models.Friend{{
			Pet: models.Pet{
				ID: "friend-a", Name: "Buddy", Breed: "fluffy", Color: "black",
				Online: true, LastSeen: time.Now(),
			},
			Outgoing: true,
			Incoming: true,
		}},
		sentSignal: make(chan VisitRequest, 2),
	}
	h := newTestHangout(api)

	if err := h.Start(context.Background(), "friend-a"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Both legs are issued concurrently; collect them
	var legs []VisitRequest
	for i := 0; i < 2; i++ {
		select {
		case req := <-api.sentSignal:
			legs = append(legs, req)
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 2 hangout legs were sent", len(legs))
		}
	}

	var out, back *VisitRequest
	for i := range legs {
		switch legs[i].ToPetID {
		case "friend-a":
			out = &legs[i]
		case "me":
			back = &legs[i]
		}
	}
	if out == nil || back == nil {
		t.Fatalf("legs = %+v, want one toward each party", legs)
	}

	// Outgoing leg carries the caller's own appearance
	if out.FromPetID != "" || out.Name != "Whiskers" || out.Breed != "normal" {
		t.Errorf("outgoing leg = %+v", *out)
	}
	// Return leg is written on the friend's behalf with cached appearance
	if back.FromPetID != "friend-a" || back.Name != "Buddy" || back.Breed != "fluffy" || back.Color != "black" {
		t.Errorf("return leg = %+v", *back)
	}
}

func TestHangoutRequiresMutual(t *testing.T) {
	api := &fakeAPI{friends: []models.Friend{{
		Pet:      models.Pet{ID: "friend-a", Online: true, LastSeen: time.Now()},
		Outgoing: true, // pending out only
	}}}
	h := newTestHangout(api)

	if err := h.Start(context.Background(), "friend-a"); err != ErrNotMutual {
		t.Errorf("Start() error = %v, want ErrNotMutual", err)
	}
	if got := len(api.sentVisits()); got != 0 {
		t.Errorf("sent %d visits, want 0", got)
	}
}

func TestHangoutRequiresEffectiveOnline(t *testing.T) {
	// Flag still says online, but the last heartbeat is long gone
	api := &fakeAPI{friends: []models.Friend{{
		Pet:      models.Pet{ID: "friend-a", Online: true, LastSeen: time.Now().Add(-time.Hour)},
		Outgoing: true,
		Incoming: true,
	}}}
	h := newTestHangout(api)

	if err := h.Start(context.Background(), "friend-a"); err != ErrFriendOffline {
		t.Errorf("Start() error = %v, want ErrFriendOffline", err)
	}
}

func TestHangoutUnknownFriend(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHangout(api)

	if err := h.Start(context.Background(), "nobody"); err != ErrNotFound {
		t.Errorf("Start() error = %v, want ErrNotFound", err)
	}
}

func TestHangoutPartialFailureIsSwallowed(t *testing.T) {
	api := &fakeAPI{
		friends: []models.Friend{{
			Pet:      models.Pet{ID: "friend-a", Online: true, LastSeen: time.Now()},
			Outgoing: true,
			Incoming: true,
		}},
		sendErr: context.DeadlineExceeded,
	}
	h := newTestHangout(api)

	// Leg failures degrade silently to a one-sided (here zero-sided) visit
	if err := h.Start(context.Background(), "friend-a"); err != nil {
		t.Errorf("Start() error = %v, want nil despite failing legs", err)
	}
}
