package freelist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedListAllocateReturnsLowestAddress(t *testing.T) {
	buf := make([]byte, 64)
	l := NewOrderedList(16)

	hi := unsafe.Pointer(&buf[48])
	mid := unsafe.Pointer(&buf[16])
	lo := unsafe.Pointer(&buf[0])

	// inserted out of order; address order must still be maintained.
	l.Deallocate(hi)
	l.Deallocate(lo)
	l.Deallocate(mid)
	require.Equal(t, 3, l.Size())

	assert.Equal(t, lo, l.Allocate())
	assert.Equal(t, mid, l.Allocate())
	assert.Equal(t, hi, l.Allocate())
	assert.True(t, l.Empty())
}

func TestOrderedListAllocateArrayFindsContiguousRun(t *testing.T) {
	buf := make([]byte, 64)
	l := NewOrderedList(16)

	// free all four 16-byte slots individually, then ask for a run of 3.
	for i := 3; i >= 0; i-- {
		l.Deallocate(unsafe.Pointer(&buf[i*16]))
	}
	require.Equal(t, 4, l.Size())

	run := l.AllocateArray(3)
	require.NotNil(t, run)
	assert.Equal(t, unsafe.Pointer(&buf[0]), run)
	assert.Equal(t, 1, l.Size())

	assert.Nil(t, l.AllocateArray(2), "only one single-node slot remains")
}

func TestOrderedListAllocateArraySkipsOverAGap(t *testing.T) {
	buf := make([]byte, 64)
	l := NewOrderedList(16)

	// slot 1 (address 16) stays allocated: only slots 0, 2, 3 are free, so
	// a contiguous run of 2 can only come from slots 2 and 3.
	l.Deallocate(unsafe.Pointer(&buf[0]))
	l.Deallocate(unsafe.Pointer(&buf[32]))
	l.Deallocate(unsafe.Pointer(&buf[48]))

	run := l.AllocateArray(2)
	require.NotNil(t, run)
	assert.Equal(t, unsafe.Pointer(&buf[32]), run)
	assert.Equal(t, 1, l.Size(), "slot 0 is still free and on its own")
}

func TestOrderedListIsFreeDetectsDoubleFree(t *testing.T) {
	buf := make([]byte, 64)
	l := NewOrderedList(16)

	for i := 0; i < 4; i++ {
		l.Deallocate(unsafe.Pointer(&buf[i*16]))
	}
	ptr := l.Allocate()
	require.NotNil(t, ptr)
	assert.False(t, l.IsFree(ptr))

	l.Deallocate(ptr)
	assert.True(t, l.IsFree(ptr), "the insertion walk finds ptr already occupying its slot")
}

func TestOrderedListCursorResumesAfterNearbyDealloc(t *testing.T) {
	buf := make([]byte, 256)
	l := NewOrderedList(16)

	// alternate allocate/deallocate, the workload the cursor exists for:
	// frees land adjacent to the previous free and must keep the list
	// address-sorted either way.
	for i := 0; i < 16; i++ {
		l.Deallocate(unsafe.Pointer(&buf[i*16]))
	}
	a := l.Allocate()
	b := l.Allocate()
	l.Deallocate(b)
	l.Deallocate(a)
	assert.Equal(t, a, l.Allocate(), "lowest address comes back first")
	assert.Equal(t, b, l.Allocate())
}

func TestOrderedListArrayAfterShuffledReinsertion(t *testing.T) {
	buf := make([]byte, 1024)
	l := NewOrderedList(32)
	l.DeallocateArray(unsafe.Pointer(&buf[0]), 32)
	require.Equal(t, 32, l.Size())

	run8 := l.AllocateArray(8)
	require.NotNil(t, run8)
	l.DeallocateArray(run8, 8)

	// churn: 16 single nodes out, freed back in shuffled order.
	ptrs := make([]unsafe.Pointer, 16)
	for i := range ptrs {
		ptrs[i] = l.Allocate()
		require.NotNil(t, ptrs[i])
	}
	for _, i := range []int{7, 0, 15, 3, 11, 1, 9, 14, 5, 12, 2, 10, 6, 13, 4, 8} {
		l.Deallocate(ptrs[i])
	}
	require.Equal(t, 32, l.Size())

	// with every node back on the list the full range is contiguous
	// again, so a 24-node run must be found regardless of free order.
	run24 := l.AllocateArray(24)
	require.NotNil(t, run24)
	assert.Equal(t, unsafe.Pointer(&buf[0]), run24)
}

func TestOrderedListDeallocateArrayRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	l := NewOrderedList(16)

	l.DeallocateArray(unsafe.Pointer(&buf[16]), 2)
	assert.Equal(t, 2, l.Size())

	run := l.AllocateArray(2)
	assert.Equal(t, unsafe.Pointer(&buf[16]), run)
	assert.True(t, l.Empty())
}
