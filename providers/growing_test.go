package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowingDoublesUpToMax(t *testing.T) {
	g := NewGrowing(16, 2, 64)
	assert.Equal(t, uintptr(16), g.NextBlockSize())

	b1, err := g.AllocateBlock()
	require.NoError(t, err)
	assert.Equal(t, uintptr(16), b1.Size)
	assert.Equal(t, uintptr(32), g.NextBlockSize())

	b2, err := g.AllocateBlock()
	require.NoError(t, err)
	assert.Equal(t, uintptr(32), b2.Size)
	assert.Equal(t, uintptr(64), g.NextBlockSize())

	b3, err := g.AllocateBlock()
	require.NoError(t, err)
	assert.Equal(t, uintptr(64), b3.Size)
	assert.Equal(t, uintptr(64), g.NextBlockSize(), "growth caps at maxBlockSize")

	b4, err := g.AllocateBlock()
	require.NoError(t, err)
	assert.Equal(t, uintptr(64), b4.Size)
}
