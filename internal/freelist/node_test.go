package freelist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListInsertAllocateIsLIFO(t *testing.T) {
	buf := make([]byte, 64)
	l := NewList(16)

	n0 := unsafe.Pointer(&buf[0])
	n1 := unsafe.Pointer(&buf[16])
	l.Insert(n0)
	l.Insert(n1)
	assert.Equal(t, 2, l.Size())

	assert.Equal(t, n1, l.Allocate())
	assert.Equal(t, n0, l.Allocate())
	assert.True(t, l.Empty())
	assert.Nil(t, l.Allocate())
}

func TestListInsertRangePreservesAscendingPopOrder(t *testing.T) {
	buf := make([]byte, 64)
	l := NewList(16)
	l.InsertRange(unsafe.Pointer(&buf[0]), 4)
	require.Equal(t, 4, l.Size())

	for i := 0; i < 4; i++ {
		want := unsafe.Pointer(&buf[i*16])
		got := l.Allocate()
		assert.Equal(t, want, got)
	}
	assert.True(t, l.Empty())
}

func TestListRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	l := NewList(8)
	ptr := unsafe.Pointer(&buf[0])
	l.Deallocate(ptr)
	got := l.Allocate()
	assert.Equal(t, ptr, got)
}

func TestListAllocateArrayByAddressNotListOrder(t *testing.T) {
	buf := make([]byte, 96)
	l := NewList(16)

	// insert slots in scrambled order; contiguity must still be found by
	// address. slots 1..3 (offsets 16, 32, 48) form the only run of 3.
	for _, off := range []int{48, 0, 32, 80, 16} {
		l.Insert(unsafe.Pointer(&buf[off]))
	}
	require.Equal(t, 5, l.Size())

	run := l.AllocateArray(3)
	require.NotNil(t, run)
	assert.Equal(t, unsafe.Pointer(&buf[16]), run)
	assert.Equal(t, 2, l.Size())
}

func TestListAllocateArrayFailureLeavesListUntouched(t *testing.T) {
	buf := make([]byte, 64)
	l := NewList(16)
	l.Insert(unsafe.Pointer(&buf[0]))
	l.Insert(unsafe.Pointer(&buf[32])) // not adjacent to slot 0

	assert.Nil(t, l.AllocateArray(2))
	assert.Equal(t, 2, l.Size())
	assert.NotNil(t, l.Allocate())
	assert.NotNil(t, l.Allocate())
}

func TestListDeallocateArrayReinserts(t *testing.T) {
	buf := make([]byte, 64)
	l := NewList(16)
	l.DeallocateArray(unsafe.Pointer(&buf[0]), 4)
	require.Equal(t, 4, l.Size())

	run := l.AllocateArray(4)
	assert.Equal(t, unsafe.Pointer(&buf[0]), run)
	assert.True(t, l.Empty())
}

func TestListIsFree(t *testing.T) {
	buf := make([]byte, 32)
	l := NewList(16)
	ptr := unsafe.Pointer(&buf[0])

	assert.False(t, l.IsFree(ptr))
	l.Insert(ptr)
	assert.True(t, l.IsFree(ptr))
	l.Allocate()
	assert.False(t, l.IsFree(ptr))
}
