package session

import (
	"sync"

	"github.com/fixado/dialog/core"
)

// workingSet is the bounded in-process tier of currently active sessions.
// When full, the session with the oldest UpdatedAt is evicted; the store
// flushes evictees to the durable tier before dropping them.
type workingSet struct {
	mu       sync.RWMutex
	capacity int
	sessions map[string]*core.Session
	byOwner  map[string]string // ownerID -> sessionID
}

func newWorkingSet(capacity int) *workingSet {
	return &workingSet{
		capacity: capacity,
		sessions: make(map[string]*core.Session),
		byOwner:  make(map[string]string),
	}
}

// Get returns the live session pointer for id, or nil.
func (w *workingSet) Get(id string) *core.Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sessions[id]
}

// GetByOwner returns the live session for an owner, or nil.
func (w *workingSet) GetByOwner(ownerID string) *core.Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if id, ok := w.byOwner[ownerID]; ok {
		return w.sessions[id]
	}
	return nil
}

// Put inserts or replaces a session and returns the evicted session, if the
// capacity bound forced one out.
func (w *workingSet) Put(s *core.Session) *core.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.sessions[s.ID]; !exists && len(w.sessions) >= w.capacity {
		evicted := w.oldestLocked()
		if evicted != nil {
			w.removeLocked(evicted)
			w.insertLocked(s)
			return evicted
		}
	}
	w.insertLocked(s)
	return nil
}

// Remove drops a session from the tier.
func (w *workingSet) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sessions[id]; ok {
		w.removeLocked(s)
	}
}

// Snapshot returns the current live sessions, unordered.
func (w *workingSet) Snapshot() []*core.Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*core.Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of resident sessions.
func (w *workingSet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sessions)
}

func (w *workingSet) insertLocked(s *core.Session) {
	w.sessions[s.ID] = s
	w.byOwner[s.OwnerID] = s.ID
}

func (w *workingSet) removeLocked(s *core.Session) {
	delete(w.sessions, s.ID)
	if w.byOwner[s.OwnerID] == s.ID {
		delete(w.byOwner, s.OwnerID)
	}
}

func (w *workingSet) oldestLocked() *core.Session {
	var oldest *core.Session
	for _, s := range w.sessions {
		if oldest == nil || s.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = s
		}
	}
	return oldest
}
