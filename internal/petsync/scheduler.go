package petsync

import (
	"context"
	"math/rand"
	"time"

	"deskpet-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// Scheduler probabilistically sends an unsolicited visit to a random
// online mutual friend. Each firing reschedules the next one whether
// or not a visit went out.
type Scheduler struct {
	mailbox     *Mailbox
	friends     *FriendList
	minDelay    time.Duration
	maxDelay    time.Duration
	probability float64
	rnd         *rand.Rand
}

// NewScheduler creates a scheduler. rnd may be seeded deterministically
// for tests; pass nil for a time-seeded source.
func NewScheduler(mailbox *Mailbox, friends *FriendList, minDelay, maxDelay time.Duration, probability float64, rnd *rand.Rand) *Scheduler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		mailbox:     mailbox,
		friends:     friends,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		probability: probability,
		rnd:         rnd,
	}
}

// Run fires on a randomized interval until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(s.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.maybeVisit(ctx)
		}
	}
}

// nextDelay picks a uniform delay within [minDelay, maxDelay]
func (s *Scheduler) nextDelay() time.Duration {
	spread := s.maxDelay - s.minDelay
	if spread <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rnd.Int63n(int64(spread)))
}

func (s *Scheduler) maybeVisit(ctx context.Context) {
	if s.rnd.Float64() >= s.probability {
		return
	}

	target, ok := s.pickTarget(s.friends.OnlineMutuals())
	if !ok {
		return
	}

	if err := s.mailbox.Send(ctx, target.ID, ""); err != nil {
		log.Debug().Err(err).Str("friend_id", target.ID).Msg("Autonomous visit failed")
		return
	}
	log.Info().Str("friend_id", target.ID).Str("friend_name", target.Name).Msg("Autonomous visit sent")
}

// pickTarget selects uniformly from the candidate pool
func (s *Scheduler) pickTarget(candidates []models.Pet) (models.Pet, bool) {
	if len(candidates) == 0 {
		return models.Pet{}, false
	}
	return candidates[s.rnd.Intn(len(candidates))], true
}
