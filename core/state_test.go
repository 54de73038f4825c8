package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_HappyPath(t *testing.T) {
	path := []State{StateInitial, StateCollecting, StateValidating, StateConfirming, StateProcessing, StateCompleted}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []State{StateCompleted, StateCancelled, StateError, StateEscalated, StateExpired} {
		assert.True(t, IsTerminal(s))
		assert.Empty(t, ValidTargets(s))
	}
}

func TestCanTransition_RejectsSkips(t *testing.T) {
	tests := []struct {
		from, to State
	}{
		{StateInitial, StateConfirming},
		{StateInitial, StateCompleted},
		{StateCollecting, StateProcessing},
		{StateCompleted, StateCollecting},
		{StateExpired, StateCollecting},
		{StateProcessing, StateCollecting},
	}
	for _, tt := range tests {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be invalid", tt.from, tt.to)
	}
}

func TestCanTransition_PausedResumesToCollecting(t *testing.T) {
	assert.True(t, CanTransition(StateCollecting, StatePaused))
	assert.True(t, CanTransition(StatePaused, StateCollecting))
	assert.False(t, CanTransition(StatePaused, StateConfirming))
}

// Every target listed in the table must itself be a known state with an
// entry, so no transition can strand a session in an unmapped state.
func TestTransitionTable_Closed(t *testing.T) {
	for from, targets := range transitions {
		for _, to := range targets {
			_, ok := transitions[to]
			assert.True(t, ok, "target %s of %s has no table entry", to, from)
		}
	}
}
