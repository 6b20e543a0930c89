package adapters

import (
	"testing"

	"github.com/memkit/arena"
	"github.com/memkit/arena/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackViewAllocatesThroughTheStack(t *testing.T) {
	a := arena.NewArena(providers.NewHeap(1024))
	defer a.Release()
	g, err := arena.NewGrowingStack(a)
	require.NoError(t, err)

	v := NewStackView(g)
	ptr, err := v.AllocateNode(64, 8)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	assert.Zero(t, uintptr(ptr)%8)
}

func TestStackViewArrayIsContiguousBump(t *testing.T) {
	a := arena.NewArena(providers.NewHeap(1024))
	defer a.Release()
	g, err := arena.NewGrowingStack(a)
	require.NoError(t, err)

	v := NewStackView(g)
	run, err := v.AllocateArray(4, 16, 8)
	require.NoError(t, err)
	next, err := v.AllocateNode(8, 8)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uintptr(next), uintptr(run)+4*16,
		"the array occupied 64 contiguous bytes of the bump region")
}

func TestStackViewRejectsOversizeAlignment(t *testing.T) {
	a := arena.NewArena(providers.NewHeap(1024))
	defer a.Release()
	g, err := arena.NewGrowingStack(a)
	require.NoError(t, err)

	v := NewStackView(g)
	_, err = v.AllocateNode(8, arena.MaxAlignment*2)
	require.Error(t, err)
	var bad *arena.BadAllocationSizeError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, arena.BadAlignment, bad.Kind)
}

func TestStackViewUnwindReclaims(t *testing.T) {
	a := arena.NewArena(providers.NewHeap(1024))
	defer a.Release()
	g, err := arena.NewGrowingStack(a)
	require.NoError(t, err)

	v := NewStackView(g)
	m := v.Stack().Top()
	p1, err := v.AllocateNode(32, 8)
	require.NoError(t, err)

	v.Stack().Unwind(m)
	p2, err := v.AllocateNode(32, 8)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
