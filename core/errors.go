package core

import "errors"

var (
	// ErrSessionNotFound indicates no session exists for the given key.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session's wall-clock deadline passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionTerminal indicates a mutation was attempted on a terminal session.
	ErrSessionTerminal = errors.New("session is terminal")
	// ErrInvalidTransition indicates the transition table rejected a target state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrLockTimeout indicates the per-session lock could not be acquired in time.
	ErrLockTimeout = errors.New("session lock timeout")
	// ErrCacheMiss indicates the cache tier has no entry for the key.
	ErrCacheMiss = errors.New("cache miss")
	// ErrStoreClosed indicates the session store has been shut down.
	ErrStoreClosed = errors.New("session store closed")
)
