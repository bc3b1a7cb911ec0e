package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		allowed bool
	}{
		{"idle to spawned", StateIdle, StateSpawned, true},
		{"spawned to working", StateSpawned, StateWorking, true},
		{"working to completed", StateWorking, StateCompleted, true},
		{"working to failed", StateWorking, StateFailed, true},
		{"working to waiting", StateWorking, StateWaiting, true},
		{"waiting to completed", StateWaiting, StateCompleted, true},
		{"completed to working", StateCompleted, StateWorking, true},
		{"failed to working", StateFailed, StateWorking, true},
		{"idle to working skips spawn", StateIdle, StateWorking, false},
		{"spawned to completed skips work", StateSpawned, StateCompleted, false},
		{"destroyed is terminal", StateDestroyed, StateWorking, false},
		{"destroyed to destroyed", StateDestroyed, StateDestroyed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestEveryStateReachesDestroyedExceptDestroyed(t *testing.T) {
	for _, s := range []State{StateIdle, StateSpawned, StateWorking, StateWaiting, StateCompleted, StateFailed} {
		assert.True(t, CanTransition(s, StateDestroyed), "state %s should allow teardown", s)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateCompleted))
	assert.True(t, IsTerminal(StateFailed))
	assert.True(t, IsTerminal(StateDestroyed))
	assert.False(t, IsTerminal(StateWorking))
	assert.False(t, IsTerminal(StateWaiting))
}

func TestInvalidTransitionError(t *testing.T) {
	err := &ErrInvalidTransition{From: StateIdle, To: StateCompleted}
	assert.Contains(t, err.Error(), "idle")
	assert.Contains(t, err.Error(), "completed")
}
