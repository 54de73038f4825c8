package core

import "time"

// InterruptionType classifies a turn that deviates from the expected
// next-field exchange.
type InterruptionType string

const (
	InterruptionCancellation  InterruptionType = "cancellation"
	InterruptionTopicChange   InterruptionType = "topic_change"
	InterruptionModification  InterruptionType = "modification"
	InterruptionClarification InterruptionType = "clarification"
	InterruptionBacktrack     InterruptionType = "backtrack"
	InterruptionNewRequest    InterruptionType = "new_request"
	InterruptionEscalation    InterruptionType = "escalation"
	InterruptionComplaint     InterruptionType = "complaint"
)

// InterruptionTypes lists every known type, in detection order.
var InterruptionTypes = []InterruptionType{
	InterruptionCancellation,
	InterruptionEscalation,
	InterruptionComplaint,
	InterruptionNewRequest,
	InterruptionTopicChange,
	InterruptionModification,
	InterruptionBacktrack,
	InterruptionClarification,
}

// Severity grades how disruptive an interruption is to the flow.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity label.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// InterruptionRecord captures one detected interruption.
type InterruptionRecord struct {
	Type       InterruptionType `json:"type"`
	Confidence float64          `json:"confidence"`
	Severity   Severity         `json:"severity"`
	Phrase     string           `json:"phrase,omitempty"`
	DetectedAt time.Time        `json:"detected_at"`
}

// InterruptionState tracks interruption handling for one session. It is
// persisted alongside the session and mutated under the same per-key lock.
type InterruptionState struct {
	Active        bool                 `json:"active"`
	Current       *InterruptionRecord  `json:"current,omitempty"`
	History       []InterruptionRecord `json:"history,omitempty"`
	RecoveryStack []State              `json:"recovery_stack,omitempty"`
	SavedContext  *CollectedData       `json:"saved_context,omitempty"`
	Count         int                  `json:"count"`
}

// NewInterruptionState returns an empty, inactive state.
func NewInterruptionState() *InterruptionState {
	return &InterruptionState{}
}

// Record marks an interruption active and appends it to the history.
func (s *InterruptionState) Record(rec InterruptionRecord) {
	s.Active = true
	s.Current = &rec
	s.History = append(s.History, rec)
	s.Count++
}

// PushRecovery snapshots the pre-interruption state and collected data so an
// explicit resume can restore them exactly.
func (s *InterruptionState) PushRecovery(state State, data *CollectedData) {
	s.RecoveryStack = append(s.RecoveryStack, state)
	s.SavedContext = data.Clone()
}

// Resolve marks the current interruption handled without restoring any
// saved context. Used by strategies that reset the flow instead of
// resuming it.
func (s *InterruptionState) Resolve() {
	s.Active = false
	s.Current = nil
}

// PopRecovery returns the most recently saved state and context, clearing
// the interruption. The second return is false when nothing was saved.
func (s *InterruptionState) PopRecovery() (State, *CollectedData, bool) {
	if len(s.RecoveryStack) == 0 {
		return "", nil, false
	}
	state := s.RecoveryStack[len(s.RecoveryStack)-1]
	s.RecoveryStack = s.RecoveryStack[:len(s.RecoveryStack)-1]
	ctx := s.SavedContext
	s.SavedContext = nil
	s.Active = false
	s.Current = nil
	return state, ctx, true
}

// Clone returns a deep copy safe for independent mutation.
func (s *InterruptionState) Clone() *InterruptionState {
	if s == nil {
		return NewInterruptionState()
	}
	clone := &InterruptionState{Active: s.Active, Count: s.Count}
	if s.Current != nil {
		cur := *s.Current
		clone.Current = &cur
	}
	clone.History = append([]InterruptionRecord(nil), s.History...)
	clone.RecoveryStack = append([]State(nil), s.RecoveryStack...)
	if s.SavedContext != nil {
		clone.SavedContext = s.SavedContext.Clone()
	}
	return clone
}
