package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVMStateCanTransition(t *testing.T) {
	cases := []struct {
		from, to VMState
		want     bool
	}{
		{Initial, Spawned, true},
		{Initial, Running, false},
		{Spawned, Running, true},
		{Spawned, Paused, false},
		{Running, Paused, true},
		{Running, Terminating, true},
		{Running, Spawned, false},
		{Paused, Running, true},
		{Paused, Terminating, true},
		{Paused, Spawned, false},
		{Terminating, Terminated, true},
		{Terminating, Running, false},
		{Terminated, Initial, false},
	}

	for _, c := range cases {
		got := c.from.CanTransition(c.to)
		assert.Equalf(t, c.want, got, "%s -> %s", c.from, c.to)
	}
}

func TestVMStatePredicates(t *testing.T) {
	assert.True(t, Paused.IsPaused())
	assert.False(t, Running.IsPaused())

	for _, s := range []VMState{Spawned, Running, Paused, Terminating} {
		assert.Truef(t, s.IsSpawned(), "%s", s)
	}
	assert.False(t, Initial.IsSpawned())
	assert.False(t, Terminated.IsSpawned())

	assert.True(t, Terminated.IsTerminal())
	assert.False(t, Terminating.IsTerminal())
}

func TestVMStateString(t *testing.T) {
	assert.Equal(t, "paused", Paused.String())
	assert.Contains(t, VMState(99).String(), "VMState")
}
