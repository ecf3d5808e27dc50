package lspclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to State }{
		{Unstarted, Starting},
		{Starting, Ready},
		{Starting, Crashed},
		{Starting, Stopping},
		{Ready, Stopping},
		{Ready, Crashed},
		{Stopping, Stopped},
		{Stopping, Crashed},
		{Crashed, Starting},
	}
	for _, tr := range legal {
		assert.True(t, canTransition(tr.from, tr.to), "%s -> %s should be legal", tr.from, tr.to)
	}

	illegal := []struct{ from, to State }{
		{Unstarted, Ready},
		{Ready, Starting},
		{Stopped, Starting},
		{Stopped, Ready},
		{Crashed, Ready},
		{Ready, Ready},
	}
	for _, tr := range illegal {
		assert.False(t, canTransition(tr.from, tr.to), "%s -> %s should be illegal", tr.from, tr.to)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "crashed", Crashed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestErrInvalidTransition_Message(t *testing.T) {
	err := &ErrInvalidTransition{From: Stopped, To: Ready}
	assert.Contains(t, err.Error(), "stopped -> ready")
}
