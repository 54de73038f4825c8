package core

import (
	"encoding/json"
	"time"
)

// SessionRecord is the serialization shape of a Session: the same fields
// without the internal mutex. It is what the cache and durable tiers store.
type SessionRecord struct {
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
}

// ToRecord snapshots the session into its serialization shape.
func (s *Session) ToRecord() *SessionRecord {
	c := s.Clone()
	return &SessionRecord{
		ID:           c.ID,
		OwnerID:      c.OwnerID,
		Channel:      c.Channel,
		Current:      c.Current,
		PriorStates:  c.PriorStates,
		Phase:        c.Phase,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		ExpiresAt:    c.ExpiresAt,
		StateHistory: c.StateHistory,
		Collected:    c.Collected,
		Messages:     c.Messages,
		Metrics:      c.Metrics,
		Interruption: c.Interruption,
		Metadata:     c.Metadata,
	}
}

// Session rebuilds a live session from a record.
func (r *SessionRecord) Session() *Session {
	s := &Session{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Channel:      r.Channel,
		Current:      r.Current,
		PriorStates:  append([]State(nil), r.PriorStates...),
		Phase:        r.Phase,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ExpiresAt:    r.ExpiresAt,
		StateHistory: append([]StateTransition(nil), r.StateHistory...),
		Collected:    r.Collected.Clone(),
		Messages:     append([]ConversationMessage(nil), r.Messages...),
		Metrics:      r.Metrics,
		Interruption: r.Interruption.Clone(),
		Metadata:     make(map[string]string, len(r.Metadata)),
	}
	for k, v := range r.Metadata {
		s.Metadata[k] = v
	}
	return s
}

// EncodeRecord marshals a record for the cache tier.
func EncodeRecord(r *SessionRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord unmarshals a cache blob back into a record.
func DecodeRecord(blob []byte) (*SessionRecord, error) {
	var r SessionRecord
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
