package core

import (
	"context"
	"time"
)

// DurableStore is the single source of truth for session records. Writes are
// upserts; terminal sessions are updated in place, never deleted, so the
// audit trail survives eviction from the faster tiers.
type DurableStore interface {
	// Upsert writes the full session record.
	Upsert(ctx context.Context, session *Session) error
	// Get loads a session by id, returning ErrSessionNotFound when absent.
	Get(ctx context.Context, id string) (*Session, error)
	// FindActiveByOwner returns the newest non-terminal, non-expired session
	// for an owner, or ErrSessionNotFound.
	FindActiveByOwner(ctx context.Context, ownerID string) (*Session, error)
	// ListExpired returns ids of non-terminal sessions whose deadline passed.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
	// Close releases underlying resources.
	Close() error
}

// Cache is the best-effort shared tier between the working set and the
// durable store. All failures are absorbed by callers; a nil Cache degrades
// the store to durable-only operation.
type Cache interface {
	SetWithTTL(ctx context.Context, key string, blob []byte, ttl time.Duration) error
	// Get returns ErrCacheMiss when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// AuditRecord is a durable log entry for events that need external
// follow-up, such as escalations and complaints.
type AuditRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditSink persists audit records.
type AuditSink interface {
	RecordAudit(ctx context.Context, rec AuditRecord) error
}

// CompletionHook receives a session once its request has been confirmed and
// moved to PROCESSING. Downstream marketplace actions implement this; the
// engine defaults to a no-op.
type CompletionHook interface {
	OnComplete(ctx context.Context, session *Session) error
}

// NoopCompletionHook discards completions.
type NoopCompletionHook struct{}

// OnComplete implements CompletionHook.
func (NoopCompletionHook) OnComplete(context.Context, *Session) error { return nil }
