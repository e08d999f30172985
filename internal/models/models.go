package models

import "time"

// Pet represents a registered pet identity
type Pet struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Breed     string    `json:"breed"`
	Color     string    `json:"color"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// Friendship represents a directional edge from one pet to another.
// Two edges in opposite directions make the friendship mutual.
type Friendship struct {
	PetID     string    `json:"pet_id"`
	FriendID  string    `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Visit represents one pet's avatar appearing on another pet's screen.
// Write-once except for the consumed flag, which only goes false -> true.
type Visit struct {
	ID        string    `json:"id"`
	FromPetID string    `json:"from_pet_id"`
	ToPetID   string    `json:"to_pet_id"`
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	Breed     string    `json:"breed"`
	Color     string    `json:"color"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendStatus is derived from edge membership, never stored
type FriendStatus string

const (
	StatusMutual     FriendStatus = "mutual"
	StatusPendingOut FriendStatus = "pending_out"
	StatusPendingIn  FriendStatus = "pending_in"
)

// Friend is one entry of the friend-list union: the peer pet plus which
// of the two directional edges exist
type Friend struct {
	Pet      Pet  `json:"pet"`
	Outgoing bool `json:"outgoing"`
	Incoming bool `json:"incoming"`
}

// Status classifies the relationship as seen from the local pet
func (f Friend) Status() FriendStatus {
	switch {
	case f.Outgoing && f.Incoming:
		return StatusMutual
	case f.Outgoing:
		return StatusPendingOut
	default:
		return StatusPendingIn
	}
}

// EffectiveOnline reports whether a peer should be treated as online.
// The stored flag alone is not trusted: a client that crashed never
// cleared it, so the last heartbeat must also be recent.
func EffectiveOnline(p Pet, now time.Time, staleWindow time.Duration) bool {
	return p.Online && now.Sub(p.LastSeen) < staleWindow
}
