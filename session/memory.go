package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fixado/dialog/core"
)

// MemoryDurable is a volatile core.DurableStore implementation storing
// session records in a process local map. It is safe for concurrent access
// and best suited for tests or ephemeral demo wiring. Each returned session
// is rebuilt from its record to prevent external mutation of internal state.
type MemoryDurable struct {
	mu      sync.RWMutex
	records map[string]*core.SessionRecord
	audits  []core.AuditRecord
}

var (
	_ core.DurableStore = (*MemoryDurable)(nil)
	_ core.AuditSink    = (*MemoryDurable)(nil)
)

// NewMemoryDurable constructs an empty in-memory durable store.
func NewMemoryDurable() *MemoryDurable {
	return &MemoryDurable{records: make(map[string]*core.SessionRecord)}
}

// Upsert implements core.DurableStore.
func (m *MemoryDurable) Upsert(_ context.Context, sess *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sess.ID] = sess.ToRecord()
	return nil
}

// Get implements core.DurableStore.
func (m *MemoryDurable) Get(_ context.Context, id string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return rec.Session(), nil
}

// FindActiveByOwner implements core.DurableStore.
func (m *MemoryDurable) FindActiveByOwner(_ context.Context, ownerID string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var newest *core.SessionRecord
	for _, rec := range m.records {
		if rec.OwnerID != ownerID || core.IsTerminal(rec.Current) {
			continue
		}
		if newest == nil || rec.UpdatedAt.After(newest.UpdatedAt) {
			newest = rec
		}
	}
	if newest == nil {
		return nil, core.ErrSessionNotFound
	}
	return newest.Session(), nil
}

// ListExpired implements core.DurableStore.
func (m *MemoryDurable) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, rec := range m.records {
		if !core.IsTerminal(rec.Current) && now.After(rec.ExpiresAt) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Close implements core.DurableStore.
func (m *MemoryDurable) Close() error { return nil }

// RecordAudit implements core.AuditSink.
func (m *MemoryDurable) RecordAudit(_ context.Context, rec core.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, rec)
	return nil
}

// Audits returns a copy of the recorded audit log.
func (m *MemoryDurable) Audits() []core.AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.AuditRecord, len(m.audits))
	copy(out, m.audits)
	return out
}

// MemoryCache is a volatile core.Cache with per-entry TTL, for tests and
// cache-less degradation experiments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	blob     []byte
	deadline time.Time
}

var _ core.Cache = (*MemoryCache)(nil)

// NewMemoryCache constructs an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

// SetWithTTL implements core.Cache.
func (c *MemoryCache) SetWithTTL(_ context.Context, key string, blob []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	c.entries[key] = memoryCacheEntry{blob: cp, deadline: time.Now().Add(ttl)}
	return nil
}

// Get implements core.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.deadline) {
		return nil, core.ErrCacheMiss
	}
	out := make([]byte, len(entry.blob))
	copy(out, entry.blob)
	return out, nil
}

// Delete implements core.Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
