package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "handshaking", StateHandshaking.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}

func TestSessionState_Transitions(t *testing.T) {
	tests := []struct {
		from, to SessionState
		ok       bool
	}{
		{StateInit, StateHandshaking, true},
		{StateInit, StateActive, false},
		{StateHandshaking, StateActive, true},
		{StateHandshaking, StateComplete, false},
		{StateActive, StateComplete, true},
		{StateActive, StateFailed, true},
		{StateActive, StateHandshaking, false},
		{StateComplete, StateFailed, false},
		{StateFailed, StateActive, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StateComplete.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateActive.IsTerminal())
}
