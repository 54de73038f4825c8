package core

import "github.com/google/uuid"

// NewID generates a unique identifier for sessions, messages and audit records.
func NewID() string { return uuid.NewString() }
