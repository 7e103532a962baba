package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_RequiresExactlyOnePipelineArgument(t *testing.T) {
	cmd := newRootCmd()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"a.zpipe", "extra"}))
	assert.NoError(t, cmd.Args(cmd, []string{"a.zpipe"}))
}

func TestNewRootCmd_DeclaresExpectedFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"modules", "config", "allocator", "max-parallel", "format", "audit"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}
