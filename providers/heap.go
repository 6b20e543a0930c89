// Package providers implements concrete arena.BlockProvider backends: a
// plain heap provider, a provider over one fixed caller-supplied buffer,
// and a geometrically growing provider.
package providers

import (
	"sync"
	"unsafe"

	"github.com/memkit/arena"
)

// Heap is an arena.BlockProvider that allocates every block independently
// from the Go heap, each block the same fixed size. It keeps a reference
// to every outstanding block's backing slice so the garbage collector
// never reclaims memory the arena still considers live.
type Heap struct {
	blockSize uintptr
	mu        sync.Mutex
	live      map[unsafe.Pointer][]byte
}

// NewHeap creates a Heap provider handing out blocks of exactly blockSize
// bytes.
func NewHeap(blockSize uintptr) *Heap {
	return &Heap{blockSize: blockSize, live: make(map[unsafe.Pointer][]byte)}
}

// AllocateBlock returns a new blockSize-byte block. It never fails (the Go
// allocator panics on true exhaustion, same as the runtime does for any
// other allocation).
func (h *Heap) AllocateBlock() (arena.Block, error) {
	buf := make([]byte, h.blockSize)
	ptr := unsafe.Pointer(&buf[0])

	h.mu.Lock()
	h.live[ptr] = buf
	h.mu.Unlock()

	return arena.Block{Memory: ptr, Size: h.blockSize}, nil
}

// DeallocateBlock drops the provider's reference to the block, making it
// eligible for garbage collection.
func (h *Heap) DeallocateBlock(b arena.Block) {
	h.mu.Lock()
	delete(h.live, b.Memory)
	h.mu.Unlock()
}

// NextBlockSize always reports the provider's fixed block size.
func (h *Heap) NextBlockSize() uintptr { return h.blockSize }
