package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("export-123")

	assert.Equal(t, "export-123", gen.Generate())
	assert.Equal(t, "export-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyDefault(t *testing.T) {
	gen := NewFixedIDGenerator("")

	assert.Equal(t, "test-export-default", gen.Generate())
}
