package petsync

import (
	"context"
	"time"

	"deskpet-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// EventKind classifies mailbox events delivered to the UI layer
type EventKind int

const (
	// VisitorArrived means the slot was empty and this visit now owns it
	VisitorArrived EventKind = iota
	// VisitorMessage means the current visitor sent a follow-up message;
	// the visitor's identity and animation are unchanged
	VisitorMessage
)

// Event is one reconciled delivery out of the mailbox
type Event struct {
	Kind  EventKind
	Visit models.Visit
}

// Mailbox merges the two delivery channels — the live push subscription
// and the polling fallback — into a single-consumer loop that owns the
// one "current visit" slot. Both producers feed the same channel, so
// the reconciliation policy has a single serialization point no matter
// which source a record came from.
type Mailbox struct {
	api          API
	self         func() (models.Pet, bool)
	pollInterval time.Duration

	incoming chan models.Visit
	events   chan Event
	clear    chan struct{}

	// slot is touched only by the consume loop
	slot *models.Visit
}

// NewMailbox creates a mailbox. self provides the local pet identity
// for outgoing sends.
func NewMailbox(api API, self func() (models.Pet, bool), pollInterval time.Duration) *Mailbox {
	return &Mailbox{
		api:          api,
		self:         self,
		pollInterval: pollInterval,
		incoming:     make(chan models.Visit),
		events:       make(chan Event, 8),
		clear:        make(chan struct{}, 1),
	}
}

// Events is the reconciled delivery stream consumed by the engine
func (m *Mailbox) Events() <-chan Event {
	return m.events
}

// Send writes a visit to a peer carrying the local pet's appearance
func (m *Mailbox) Send(ctx context.Context, toPeerID, message string) error {
	pet, ok := m.self()
	if !ok {
		return ErrNotRegistered
	}
	return m.api.SendVisit(ctx, VisitRequest{
		ToPetID: toPeerID,
		Message: message,
		Name:    pet.Name,
		Breed:   pet.Breed,
		Color:   pet.Color,
	})
}

// ClearSlot empties the current-visit slot. Only the visitor lifecycle
// reaching its terminal state calls this; mailbox logic never clears
// the slot on its own.
func (m *Mailbox) ClearSlot() {
	select {
	case m.clear <- struct{}{}:
	default:
		// a clear is already pending
	}
}

// Run starts both producers and the consume loop, blocking until ctx
// is cancelled
func (m *Mailbox) Run(ctx context.Context) {
	go m.pushLoop(ctx)
	go m.pollLoop(ctx)
	m.consumeLoop(ctx)
}

// pushLoop keeps the live subscription open, reconnecting with backoff.
// Missed events during a disconnect are covered by the poll loop, so
// delivery stalls at most one polling interval.
func (m *Mailbox) pushLoop(ctx context.Context) {
	backoff := time.Second
	for {
		visits, err := m.api.Subscribe(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Push subscription failed, will retry")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		log.Info().Msg("Push subscription open")

		for visit := range visits {
			select {
			case m.incoming <- visit:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
			log.Debug().Msg("Push subscription closed, reconnecting")
		}
	}
}

// pollLoop is the reliability backstop: every tick it fetches the
// single most recent unconsumed visit. Failures are silent and simply
// retried on the next tick.
func (m *Mailbox) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			visit, err := m.api.LatestVisit(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("Visit poll failed")
				continue
			}
			if visit == nil {
				continue
			}
			select {
			case m.incoming <- *visit:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *Mailbox) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case visit := <-m.incoming:
			m.reconcile(ctx, visit)
		case <-m.clear:
			m.slot = nil
		}
	}
}

// reconcile applies the slot policy to one delivered record:
//
//	empty slot            -> occupy it, the visit becomes the visitor
//	same sender as slot   -> follow-up message, identity unchanged
//	different sender      -> discarded for UI purposes, no queueing
//
// Either way the record is marked consumed so it is never redelivered.
// Duplicate delivery of one id from both sources is harmless: the
// same-sender branch is idempotent and the discard branch emits nothing.
func (m *Mailbox) reconcile(ctx context.Context, visit models.Visit) {
	switch {
	case m.slot == nil:
		v := visit
		m.slot = &v
		m.emit(ctx, Event{Kind: VisitorArrived, Visit: v})
	case m.slot.FromPetID == visit.FromPetID:
		if visit.Message != "" {
			m.slot.Message = visit.Message
			m.emit(ctx, Event{Kind: VisitorMessage, Visit: *m.slot})
		}
	default:
		log.Debug().
			Str("visit_id", visit.ID).
			Str("from_pet_id", visit.FromPetID).
			Msg("Visit discarded, another visitor is active")
	}

	// Best-effort consume; marking an already-consumed record is a no-op
	if err := m.api.ConsumeVisit(ctx, visit.ID); err != nil {
		log.Debug().Err(err).Str("visit_id", visit.ID).Msg("Failed to mark visit consumed")
	}
}

func (m *Mailbox) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

// current returns the slot contents, for inspection
func (m *Mailbox) current() *models.Visit {
	return m.slot
}
