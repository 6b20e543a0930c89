package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocateBlockGrowsAndCaches(t *testing.T) {
	p := newStubProvider(128)
	a := NewArena(p)

	b1, err := a.AllocateBlock()
	require.NoError(t, err)
	assert.Equal(t, 1, a.Size())
	assert.Equal(t, uintptr(128), b1.Size+blockStackHeaderSize)

	a.DeallocateBlock()
	assert.Equal(t, 0, a.Size())
	assert.Equal(t, 1, a.CacheSize(), "cached arena keeps freed blocks instead of releasing them")

	b2, err := a.AllocateBlock()
	require.NoError(t, err)
	assert.Equal(t, b1.Memory, b2.Memory, "a cached block is reused before asking the provider again")
	assert.Equal(t, 0, a.CacheSize())
}

func TestArenaUncachedReleasesImmediately(t *testing.T) {
	p := newStubProvider(64)
	a := NewArena(p, WithCache(false))

	_, err := a.AllocateBlock()
	require.NoError(t, err)
	a.DeallocateBlock()
	assert.Equal(t, 0, a.CacheSize())
	assert.Equal(t, 0, a.Size())
}

func TestArenaShrinkToFit(t *testing.T) {
	p := newStubProvider(64)
	a := NewArena(p)

	for i := 0; i < 3; i++ {
		_, err := a.AllocateBlock()
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		a.DeallocateBlock()
	}
	assert.Equal(t, 3, a.CacheSize())

	a.ShrinkToFit()
	assert.Equal(t, 0, a.CacheSize())
}

func TestArenaOwnsAndMetrics(t *testing.T) {
	p := newStubProvider(64)
	a := NewArena(p)

	b, err := a.AllocateBlock()
	require.NoError(t, err)
	assert.True(t, a.Owns(b.Memory))

	m := a.Metrics()
	assert.Equal(t, 1, m.Size)
	assert.Equal(t, 0, m.CacheSize)
	assert.Equal(t, a.Capacity(), m.Capacity)
}

func TestArenaRelease(t *testing.T) {
	p := newStubProvider(64)
	a := NewArena(p)

	_, err := a.AllocateBlock()
	require.NoError(t, err)
	a.Release()
	assert.Equal(t, 0, a.Size())
	assert.Equal(t, 0, a.CacheSize())
}
