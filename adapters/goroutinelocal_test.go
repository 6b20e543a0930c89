package adapters

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/memkit/arena"
	"github.com/memkit/arena/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutineLocalPoolGivesEachGoroutineItsOwnAllocator(t *testing.T) {
	g := NewGoroutineLocalPool(func() arena.RawAllocator {
		return NewPoolView(arena.NewPool(arena.NodePool, 16, providers.NewHeap(4096)), 8)
	})

	const n = 16
	var wg sync.WaitGroup
	firstPtrs := make([]unsafe.Pointer, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ptr, err := g.AllocateNode(16, 8)
			require.NoError(t, err)
			firstPtrs[i] = ptr

			// a second call on the same goroutine must reuse that
			// goroutine's own allocator instance, not allocate a fresh one.
			ptr2, err := g.AllocateNode(16, 8)
			require.NoError(t, err)
			assert.NotEqual(t, ptr, ptr2, "the pool itself, not the pointer, is what's shared per-goroutine")
		}(i)
	}
	wg.Wait()

	seen := make(map[unsafe.Pointer]bool, n)
	for _, p := range firstPtrs {
		assert.False(t, seen[p])
		seen[p] = true
	}
}
