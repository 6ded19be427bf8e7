package session

import "errors"

var (
	// ErrNotFound is returned when a session or a session value does not exist
	ErrNotFound = errors.New("session not found")

	// ErrInvalidSessionID is returned for ids that are not UUIDs
	ErrInvalidSessionID = errors.New("invalid session id")
)
