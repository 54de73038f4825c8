package core

import "time"

// State identifies a phase of the session lifecycle. The set of legal
// movements between states is fixed by the transition table below; every
// mutation goes through Session.TransitionTo which rejects anything the
// table does not allow.
type State string

const (
	// StateInitial is the entry state of a freshly created session.
	StateInitial State = "INITIAL"
	// StateCollecting gathers intake fields turn by turn.
	StateCollecting State = "COLLECTING"
	// StateValidating checks the collected field set for consistency.
	StateValidating State = "VALIDATING"
	// StateConfirming awaits an explicit user confirmation of the summary.
	StateConfirming State = "CONFIRMING"
	// StateProcessing hands the confirmed request to downstream actions.
	StateProcessing State = "PROCESSING"
	// StateCompleted is the successful terminal state.
	StateCompleted State = "COMPLETED"
	// StateCancelled is the terminal state after a user cancellation.
	StateCancelled State = "CANCELLED"
	// StateError is the terminal state after an unrecoverable failure.
	StateError State = "ERROR"
	// StateEscalated is the terminal state after handoff to a human.
	StateEscalated State = "ESCALATED"
	// StateExpired is the terminal state of a timed-out session.
	StateExpired State = "EXPIRED"
	// StatePaused suspends collection; resumable back to COLLECTING.
	StatePaused State = "PAUSED"
)

// transitions is the static table of valid state movements. Terminal states
// map to an empty slice.
var transitions = map[State][]State{
	StateInitial:    {StateCollecting, StatePaused, StateCancelled, StateExpired, StateError, StateEscalated},
	StateCollecting: {StateValidating, StateInitial, StatePaused, StateCancelled, StateExpired, StateError, StateEscalated},
	StateValidating: {StateConfirming, StateCollecting, StateInitial, StatePaused, StateCancelled, StateExpired, StateError, StateEscalated},
	StateConfirming: {StateProcessing, StateCollecting, StateInitial, StatePaused, StateCancelled, StateExpired, StateError, StateEscalated},
	StateProcessing: {StateCompleted, StateCancelled, StateExpired, StateError, StateEscalated},
	StatePaused:     {StateCollecting, StateCancelled, StateExpired, StateError, StateEscalated},
	StateCompleted:  {},
	StateCancelled:  {},
	StateError:      {},
	StateEscalated:  {},
	StateExpired:    {},
}

// CanTransition reports whether the table allows moving from one state to
// another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(state State) bool {
	targets, ok := transitions[state]
	return ok && len(targets) == 0
}

// ValidTargets returns a copy of the allowed targets for a state.
func ValidTargets(state State) []State {
	targets := transitions[state]
	out := make([]State, len(targets))
	copy(out, targets)
	return out
}

// StateTransition is one entry of a session's bounded transition log.
type StateTransition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Phase is the sub-state within COLLECTING indicating which field group the
// dialogue is currently after.
type Phase string

const (
	PhaseGreeting    Phase = "greeting"
	PhaseServiceType Phase = "service_type"
	PhaseLocation    Phase = "location"
	PhaseDescription Phase = "description"
	PhaseDetails     Phase = "details"
	PhaseContact     Phase = "contact"
)
