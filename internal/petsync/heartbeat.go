package petsync

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Heartbeat periodically asserts "I am online" for the local pet.
// Write failures are logged and dropped; the next tick retries. A
// missed beat only matters once the peer-side staleness window runs
// out, which is sized for a couple of missed beats.
type Heartbeat struct {
	api      API
	self     func() (Identity, bool)
	interval time.Duration
}

// NewHeartbeat creates a heartbeat
func NewHeartbeat(api API, self func() (Identity, bool), interval time.Duration) *Heartbeat {
	return &Heartbeat{
		api:      api,
		self:     self,
		interval: interval,
	}
}

// Run beats immediately, then on every tick, until ctx is cancelled.
// On the way out it makes one best-effort "offline" assertion; an
// ungraceful shutdown skips it, which is exactly why consumers apply
// the staleness window instead of trusting the stored flag.
func (h *Heartbeat) Run(ctx context.Context) {
	h.beat(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.goOffline()
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	ident, ok := h.self()
	if !ok {
		return
	}
	pet := ident.Pet
	if err := h.api.UpdatePresence(ctx, true, pet.Name, pet.Breed, pet.Color); err != nil {
		log.Debug().Err(err).Msg("Heartbeat failed")
	}
}

func (h *Heartbeat) goOffline() {
	ident, ok := h.self()
	if !ok {
		return
	}
	// The run context is already cancelled here; give the farewell
	// write its own short deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pet := ident.Pet
	if err := h.api.UpdatePresence(ctx, false, pet.Name, pet.Breed, pet.Color); err != nil {
		log.Debug().Err(err).Msg("Offline assertion failed")
	}
}
