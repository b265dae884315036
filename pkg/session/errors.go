package session

import "errors"

var (
	// ErrSessionNotFound indicates no session is persisted.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrInvalidSession indicates the persisted record cannot be used.
	ErrInvalidSession = errors.New("session.invalid")

	// ErrUnknownRole indicates a configured role outside client/developer/admin.
	ErrUnknownRole = errors.New("session.unknown_role")
)
