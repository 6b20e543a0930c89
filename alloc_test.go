package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allocTestStruct struct {
	a int64
	b int32
	c int16
	d int8
}

func TestAllocReturnsZeroedValue(t *testing.T) {
	a := NewArena(newStubProvider(1024))
	s, err := NewGrowingStack(a, WithDebugConfig(DebugConfig{FillEnabled: true}))
	require.NoError(t, err)

	// fill-enabled stacks hand out newMemory-patterned bytes, so a
	// non-zeroed path would be visibly dirty here.
	v, err := Alloc[allocTestStruct](s)
	require.NoError(t, err)
	assert.Equal(t, allocTestStruct{}, *v)
}

func TestAllocAlignment(t *testing.T) {
	a := NewArena(newStubProvider(1024))
	s, err := NewGrowingStack(a)
	require.NoError(t, err)

	_, err = s.Allocate(1, 1) // force misalignment for the next request
	require.NoError(t, err)

	v, err := Alloc[int64](s)
	require.NoError(t, err)
	assert.Zero(t, uintptr(unsafe.Pointer(v))%8)
}

func TestAllocSlice(t *testing.T) {
	a := NewArena(newStubProvider(1024))
	s, err := NewGrowingStack(a, WithDebugFill(true))
	require.NoError(t, err)

	xs, err := AllocSlice[int32](s, 8)
	require.NoError(t, err)
	require.Len(t, xs, 8)
	for _, x := range xs {
		assert.Zero(t, x)
	}

	empty, err := AllocSlice[int32](s, 0)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestTypedPoolGetPut(t *testing.T) {
	tp := NewTypedPool[allocTestStruct](newStubProvider(512))
	defer tp.Pool().Release()

	v, err := tp.Get()
	require.NoError(t, err)
	assert.Equal(t, allocTestStruct{}, *v)

	v.a = 42
	tp.Put(v)

	again, err := tp.Get()
	require.NoError(t, err)
	assert.Equal(t, v, again, "the freed node is reused")
	assert.Zero(t, again.a, "Get zeroes recycled nodes")
}

func TestTypedPoolKindBySize(t *testing.T) {
	small := NewTypedPool[int32](newStubProvider(512))
	assert.Equal(t, SmallNodePool, small.Pool().Kind())

	big := NewTypedPool[[64]int64](newStubProvider(4096))
	assert.Equal(t, NodePool, big.Pool().Kind())
}
