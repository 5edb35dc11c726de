package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCommandFindsRegisteredNames(t *testing.T) {
	for _, name := range []string{"run", "cont", "step", "next", "out", "break", "delete", "bt", "interrupt", "quit", "help"} {
		cmd, ok := lookupCommand(name)
		assert.True(t, ok, "expected %q to be registered", name)
		assert.Equal(t, name, cmd.name)
		assert.NotNil(t, cmd.run)
	}
}

func TestLookupCommandRejectsUnknownName(t *testing.T) {
	_, ok := lookupCommand("frobnicate")
	assert.False(t, ok)
}

func TestCmdBreakRequiresAtLeastOneArg(t *testing.T) {
	err := cmdBreak(nil, nil, nil)
	assert.Error(t, err)
}

func TestCmdDeleteRejectsNonIntegerID(t *testing.T) {
	err := cmdDelete(nil, nil, []string{"not-a-number"})
	assert.Error(t, err)
}

func TestCmdDeleteRequiresExactlyOneArg(t *testing.T) {
	err := cmdDelete(nil, nil, nil)
	assert.Error(t, err)

	err = cmdDelete(nil, nil, []string{"1", "2"})
	assert.Error(t, err)
}
