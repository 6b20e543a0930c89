package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowingStackGrowsWhenExhausted(t *testing.T) {
	p := newStubProvider(64)
	a := NewArena(p)
	g, err := NewGrowingStack(a)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Size())

	// exhaust the first block, forcing a second to be requested.
	for i := 0; i < 64; i++ {
		if _, err := g.Allocate(4, 4); err != nil {
			break
		}
	}
	_, err = g.Allocate(4, 4)
	require.NoError(t, err)
	assert.Greater(t, a.Size(), 1)
}

func TestGrowingStackUnwindToMarker(t *testing.T) {
	p := newStubProvider(64)
	a := NewArena(p)
	g, err := NewGrowingStack(a)
	require.NoError(t, err)

	m := g.Top()
	ptr1, err := g.Allocate(8, 8)
	require.NoError(t, err)

	g.Unwind(m)
	ptr2, err := g.Allocate(8, 8)
	require.NoError(t, err)
	assert.Equal(t, ptr1, ptr2)
}

func TestGrowingStackReportsBadNodeSize(t *testing.T) {
	p := newStubProvider(32)
	a := NewArena(p)
	g, err := NewGrowingStack(a)
	require.NoError(t, err)

	_, err = g.Allocate(1<<20, 8)
	require.Error(t, err)
	var bad *BadAllocationSizeError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, BadNodeSize, bad.Kind)
}
