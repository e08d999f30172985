package petsync

import (
	"context"

	"deskpet-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// Hangout starts a mutual visit: two independent mailbox writes, one
// per direction, with no shared transaction. If one leg fails only one
// side sees a visitor; that degraded outcome is accepted rather than
// detected or rolled back.
type Hangout struct {
	api     API
	friends *FriendList
	self    func() (Identity, bool)
}

// NewHangout creates a hangout orchestrator
func NewHangout(api API, friends *FriendList, self func() (Identity, bool)) *Hangout {
	return &Hangout{
		api:     api,
		friends: friends,
		self:    self,
	}
}

// Start validates the peer and issues both legs concurrently. The
// reverse leg (friend -> caller) carries the friend's last-known
// appearance from the local cache, not a re-fetch. Leg failures are
// logged and swallowed.
func (h *Hangout) Start(ctx context.Context, friendID string) error {
	ident, ok := h.self()
	if !ok {
		return ErrNotRegistered
	}

	friend, ok := h.friends.Lookup(friendID)
	if !ok {
		return ErrNotFound
	}
	if friend.Status != models.StatusMutual {
		return ErrNotMutual
	}
	if !friend.EffectiveOnline {
		return ErrFriendOffline
	}

	own := ident.Pet
	peer := friend.Pet

	go func() {
		err := h.api.SendVisit(ctx, VisitRequest{
			ToPetID: peer.ID,
			Message: "",
			Name:    own.Name,
			Breed:   own.Breed,
			Color:   own.Color,
		})
		if err != nil {
			log.Error().Err(err).Str("friend_id", peer.ID).Msg("Hangout outgoing leg failed")
		}
	}()

	go func() {
		err := h.api.SendVisit(ctx, VisitRequest{
			FromPetID: peer.ID,
			ToPetID:   own.ID,
			Message:   "",
			Name:      peer.Name,
			Breed:     peer.Breed,
			Color:     peer.Color,
		})
		if err != nil {
			log.Error().Err(err).Str("friend_id", peer.ID).Msg("Hangout return leg failed")
		}
	}()

	log.Info().Str("friend_id", peer.ID).Str("friend_name", peer.Name).Msg("Hangout started")
	return nil
}
