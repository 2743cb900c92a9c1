package chat

import "errors"

var (
	// ErrAuth marks an invalid or expired credential.
	ErrAuth = errors.New("chat: authentication failed")
	// ErrValidation marks empty content or a missing required target.
	ErrValidation = errors.New("chat: validation failed")
	// ErrNotFound marks a conversation that was expected to exist.
	ErrNotFound = errors.New("chat: conversation not found")
	// ErrStoreUnavailable marks a transient backend failure or timeout.
	ErrStoreUnavailable = errors.New("chat: store unavailable")
)
