package services

import (
	"errors"
)

// Command failures the engine reports to callers. StoreUnavailable is not
// listed here: transient backend failures pass through as
// store.ErrUnavailable so callers can retry with backoff.
var (
	// ErrNotFound means the game, question or player does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExpired means the game aged past the retention window and reads
	// as gone.
	ErrExpired = errors.New("game expired")
	// ErrConflict means the command is invalid for the session's current
	// state, e.g. revealing with no active question.
	ErrConflict = errors.New("invalid for current state")
	// ErrValidation means the input itself is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrRejoin means the submitting player's row is gone (kick or idle
	// expiry); the client should rejoin rather than retry.
	ErrRejoin = errors.New("player not found, please rejoin")
)
