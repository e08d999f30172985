package petsync

import "errors"

// Errors surfaced through the boundary API. Validation errors are
// raised locally before any network call; the rest map backend
// responses onto the caller-facing taxonomy.
var (
	ErrNotRegistered      = errors.New("pet is not registered")
	ErrAlreadyRegistered  = errors.New("pet is already registered")
	ErrInvalidCode        = errors.New("malformed pet code")
	ErrSelfCode           = errors.New("cannot add your own code")
	ErrNotFound           = errors.New("no pet with that code")
	ErrAlreadyExists      = errors.New("friend already added")
	ErrNotMutual          = errors.New("friend is not mutual")
	ErrFriendOffline      = errors.New("friend is not online")
	ErrEmptyMessage       = errors.New("message text is empty")
	ErrEmptyName          = errors.New("name is empty")
	ErrNoVisitor          = errors.New("no visitor on screen")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
