package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	next := SequentialIDs("session")
	assert.Equal(t, "session-1", next())
	assert.Equal(t, "session-2", next())

	assert.Equal(t, "id-1", SequentialIDs("")())
}

func TestSequentialTokens(t *testing.T) {
	g := NewSequentialTokens("prompt")
	assert.Equal(t, "prompt-1", g.Generate())
	assert.Equal(t, "prompt-2", g.Generate())
}
