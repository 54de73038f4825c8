package core

import (
	"sync"
	"time"
)

const (
	// MaxMessageHistory bounds the per-session message log; the oldest
	// entry is evicted first.
	MaxMessageHistory = 10
	// MaxStateHistory bounds the per-session transition log.
	MaxStateHistory = 20
	// MaxPriorStates bounds the rollback stack.
	MaxPriorStates = 20
)

// Session is the durable record of one ongoing multi-turn exchange with a
// single owner/channel. It is safe for concurrent access, but turn-level
// atomicity (detect, extract, merge, transition, persist) is the session
// store's responsibility via its per-key lock; the internal mutex only
// protects individual accessors.
//
// Contract:
//   - All mutations update UpdatedAt
//   - TransitionTo validates against the static table; invalid targets are
//     rejected and leave the session unchanged
//   - Rollback pops the bounded prior-state stack (never oscillates)
//   - Message and transition histories are bounded, oldest evicted first
//   - Clone performs deep copies for safe divergence.
type Session struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Channel string `json:"channel"`

	Current     State   `json:"current_state"`
	PriorStates []State `json:"prior_states,omitempty"`
	Phase       Phase   `json:"phase"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`

	StateHistory []StateTransition     `json:"state_history,omitempty"`
	Collected    *CollectedData        `json:"collected"`
	Messages     []ConversationMessage `json:"messages,omitempty"`
	Metrics      SessionMetrics        `json:"metrics"`
	Interruption *InterruptionState    `json:"interruption,omitempty"`
	Metadata     map[string]string     `json:"metadata,omitempty"`

	mu sync.RWMutex
}

// NewSession creates a session in INITIAL for the given owner and channel,
// expiring after ttl.
func NewSession(ownerID, channel string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           NewID(),
		OwnerID:      ownerID,
		Channel:      channel,
		Current:      StateInitial,
		Phase:        PhaseGreeting,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		Collected:    NewCollectedData(),
		Interruption: NewInterruptionState(),
		Metadata:     make(map[string]string),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Current
}

// PreviousState returns the top of the prior-state stack, or the zero State
// when no transition has happened yet.
func (s *Session) PreviousState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.PriorStates) == 0 {
		return ""
	}
	return s.PriorStates[len(s.PriorStates)-1]
}

// TransitionTo moves the session to target if the transition table allows
// it. On success the prior state is pushed onto the bounded rollback stack,
// the transition is logged and metrics/timestamps are updated. Invalid
// targets return false and mutate nothing.
func (s *Session) TransitionTo(target State, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.Current, target) {
		return false
	}
	s.pushPriorLocked(s.Current)
	s.appendTransitionLocked(s.Current, target, reason)
	s.Current = target
	s.Metrics.StateChanges++
	s.UpdatedAt = time.Now().UTC()
	return true
}

// Rollback pops the prior-state stack and restores that state. The move is
// the inverse of a transition the table already allowed, so it is not
// re-checked against the table; only terminal states refuse to roll back.
// Repeated rollbacks walk further back rather than oscillating between two
// states.
func (s *Session) Rollback(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.PriorStates) == 0 || IsTerminal(s.Current) {
		return false
	}
	prior := s.PriorStates[len(s.PriorStates)-1]
	s.PriorStates = s.PriorStates[:len(s.PriorStates)-1]
	s.appendTransitionLocked(s.Current, prior, reason)
	s.Current = prior
	s.Metrics.Rollbacks++
	s.UpdatedAt = time.Now().UTC()
	return true
}

func (s *Session) pushPriorLocked(state State) {
	s.PriorStates = append(s.PriorStates, state)
	if len(s.PriorStates) > MaxPriorStates {
		s.PriorStates = s.PriorStates[len(s.PriorStates)-MaxPriorStates:]
	}
}

func (s *Session) appendTransitionLocked(from, to State, reason string) {
	s.StateHistory = append(s.StateHistory, StateTransition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	if len(s.StateHistory) > MaxStateHistory {
		s.StateHistory = s.StateHistory[len(s.StateHistory)-MaxStateHistory:]
	}
}

// AppendMessage adds a message to the bounded history and updates counters.
func (s *Session) AppendMessage(msg ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	if len(s.Messages) > MaxMessageHistory {
		s.Messages = s.Messages[len(s.Messages)-MaxMessageHistory:]
	}
	s.Metrics.CountMessage(msg.Direction)
	s.UpdatedAt = time.Now().UTC()
}

// RecentMessages returns a defensive copy of the message history.
func (s *Session) RecentMessages() []ConversationMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConversationMessage, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// MergeField records an extracted value into the collected data.
func (s *Session) MergeField(f Field, value string, confidence float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Collected == nil {
		s.Collected = NewCollectedData()
	}
	s.Collected.Merge(f, value, confidence)
	s.UpdatedAt = time.Now().UTC()
}

// IsExpired reports whether the wall-clock deadline has passed.
func (s *Session) IsExpired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.After(s.ExpiresAt)
}

// Touch extends the expiry deadline by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// SetMetadata records a free-form key/value pair.
func (s *Session) SetMetadata(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
	s.UpdatedAt = time.Now().UTC()
}

// RecordError bumps the error counter and stores the message under the
// "last_error" metadata key.
func (s *Session) RecordError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metrics.Errors++
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata["last_error"] = msg
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the session (maps and slices) except the mutex.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Channel:   s.Channel,
		Current:   s.Current,
		Phase:     s.Phase,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: s.ExpiresAt,
		Metrics:   s.Metrics,
	}
	clone.PriorStates = append([]State(nil), s.PriorStates...)
	clone.StateHistory = append([]StateTransition(nil), s.StateHistory...)
	clone.Messages = append([]ConversationMessage(nil), s.Messages...)
	clone.Collected = s.Collected.Clone()
	clone.Interruption = s.Interruption.Clone()
	clone.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
