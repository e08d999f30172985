package petsync

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"deskpet-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// codePattern matches the XXXX-XXXX shareable code over the restricted
// alphabet (no 0, O, 1 or I)
var codePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

// NormalizeCode uppercases and trims a user-typed code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized code is well formed
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// FriendView is one friend-list entry with its derived status
type FriendView struct {
	Pet             models.Pet          `json:"pet"`
	Status          models.FriendStatus `json:"status"`
	EffectiveOnline bool                `json:"effective_online"`
}

// FriendList maintains the local friend cache. The listing is always
// recomputed wholesale from the backend edge union, never patched
// incrementally; incremental patching is where stale-status bugs live.
type FriendList struct {
	api         API
	staleWindow time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	friends []models.Friend
}

// NewFriendList creates a friend list cache
func NewFriendList(api API, staleWindow time.Duration) *FriendList {
	return &FriendList{
		api:         api,
		staleWindow: staleWindow,
		now:         time.Now,
	}
}

// Refresh replaces the cache with a fresh edge union from the backend
func (fl *FriendList) Refresh(ctx context.Context) error {
	friends, err := fl.api.ListFriends(ctx)
	if err != nil {
		return err
	}
	fl.mu.Lock()
	fl.friends = friends
	fl.mu.Unlock()
	return nil
}

// Friends returns the cached listing with derived status and staleness
// applied at read time
func (fl *FriendList) Friends() []FriendView {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	now := fl.now()
	views := make([]FriendView, 0, len(fl.friends))
	for _, f := range fl.friends {
		views = append(views, FriendView{
			Pet:             f.Pet,
			Status:          f.Status(),
			EffectiveOnline: models.EffectiveOnline(f.Pet, now, fl.staleWindow),
		})
	}
	return views
}

// Lookup finds a cached friend by peer id
func (fl *FriendList) Lookup(peerID string) (FriendView, bool) {
	for _, f := range fl.Friends() {
		if f.Pet.ID == peerID {
			return f, true
		}
	}
	return FriendView{}, false
}

// OnlineMutuals returns the mutual friends currently treated as online,
// the candidate pool for hangouts and autonomous visits
func (fl *FriendList) OnlineMutuals() []models.Pet {
	var pets []models.Pet
	for _, f := range fl.Friends() {
		if f.Status == models.StatusMutual && f.EffectiveOnline {
			pets = append(pets, f.Pet)
		}
	}
	return pets
}

// Add validates and adds a friend by code. The self-code and format
// checks run locally before any network call.
func (fl *FriendList) Add(ctx context.Context, ownCode, code string) (models.Pet, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return models.Pet{}, ErrInvalidCode
	}
	if code == ownCode {
		return models.Pet{}, ErrSelfCode
	}

	peer, err := fl.api.AddFriend(ctx, code)
	if err != nil {
		return models.Pet{}, err
	}

	fl.refreshAfterMutation(ctx)
	return peer, nil
}

// Accept adds the reverse edge toward a pending-incoming peer
func (fl *FriendList) Accept(ctx context.Context, peerID string) error {
	if err := fl.api.AcceptFriend(ctx, peerID); err != nil {
		return err
	}
	fl.refreshAfterMutation(ctx)
	return nil
}

// Remove deletes the local pet's own edge toward the peer
func (fl *FriendList) Remove(ctx context.Context, peerID string) error {
	if err := fl.api.RemoveFriend(ctx, peerID); err != nil {
		return err
	}
	fl.refreshAfterMutation(ctx)
	return nil
}

func (fl *FriendList) refreshAfterMutation(ctx context.Context) {
	if err := fl.Refresh(ctx); err != nil {
		log.Debug().Err(err).Msg("Friend refresh after mutation failed")
	}
}
