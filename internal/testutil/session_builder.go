package testutil

import (
	"time"

	"github.com/fixado/dialog/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("owner-1").State(core.StateCollecting).
//		Field(core.FieldServiceType, "plomberie", 0.9).Build()
type SessionBuilder struct {
	ownerID  string
	channel  string
	ttl      time.Duration
	state    core.State
	phase    core.Phase
	fields   map[core.Field]fieldSeed
	messages []core.ConversationMessage
}

type fieldSeed struct {
	value      string
	confidence float64
}

// NewSessionBuilder creates a builder for a session owned by ownerID.
// Use chainable methods (State, Field, Message) then call Build.
func NewSessionBuilder(ownerID string) *SessionBuilder {
	return &SessionBuilder{
		ownerID: ownerID,
		channel: "test-channel",
		ttl:     2 * time.Hour,
		state:   core.StateInitial,
		fields:  map[core.Field]fieldSeed{},
	}
}

// Channel overrides the channel address (chainable).
func (b *SessionBuilder) Channel(channel string) *SessionBuilder {
	b.channel = channel
	return b
}

// TTL overrides the session lifetime (chainable).
func (b *SessionBuilder) TTL(ttl time.Duration) *SessionBuilder {
	b.ttl = ttl
	return b
}

// State sets the state the built session should end up in. The builder walks
// the transition table's happy path to reach it, so histories stay coherent.
func (b *SessionBuilder) State(state core.State) *SessionBuilder {
	b.state = state
	return b
}

// Phase sets the collection phase (chainable).
func (b *SessionBuilder) Phase(phase core.Phase) *SessionBuilder {
	b.phase = phase
	return b
}

// Field seeds one collected value (chainable).
func (b *SessionBuilder) Field(f core.Field, value string, confidence float64) *SessionBuilder {
	b.fields[f] = fieldSeed{value: value, confidence: confidence}
	return b
}

// Message appends a message to the session history (chainable).
func (b *SessionBuilder) Message(msg core.ConversationMessage) *SessionBuilder {
	b.messages = append(b.messages, msg)
	return b
}

// Build returns a *core.Session with the configured state, fields and
// messages.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.ownerID, b.channel, b.ttl)

	// Walk the happy path until the target becomes reachable, so the built
	// session carries a coherent transition history.
	path := []core.State{core.StateCollecting, core.StateValidating, core.StateConfirming, core.StateProcessing, core.StateCompleted}
	for _, step := range path {
		if s.State() == b.state || s.TransitionTo(b.state, "test setup") {
			break
		}
		s.TransitionTo(step, "test setup")
	}

	if b.phase != "" {
		s.Phase = b.phase
	}
	for f, seed := range b.fields {
		s.MergeField(f, seed.value, seed.confidence)
	}
	for _, msg := range b.messages {
		s.AppendMessage(msg)
	}
	return s
}
