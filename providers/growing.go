package providers

import (
	"sync"
	"unsafe"

	"github.com/memkit/arena"
)

// Growing is an arena.BlockProvider that hands out geometrically larger
// blocks over time: NextBlockSize starts at an initial size and multiplies
// by growthFactor after every AllocateBlock call, capped at maxBlockSize.
// It is meant to back a long-lived Arena where early blocks are small (low
// up-front cost) but later blocks amortise the per-block fixed overhead as
// the arena's working set grows.
type Growing struct {
	next         uintptr
	growthFactor uintptr
	maxBlockSize uintptr
	mu           sync.Mutex
	live         map[unsafe.Pointer][]byte
}

// NewGrowing creates a Growing provider starting at initialBlockSize,
// multiplying by growthFactor (minimum 2) after each call, never exceeding
// maxBlockSize.
func NewGrowing(initialBlockSize, growthFactor, maxBlockSize uintptr) *Growing {
	if growthFactor < 2 {
		growthFactor = 2
	}
	return &Growing{
		next:         initialBlockSize,
		growthFactor: growthFactor,
		maxBlockSize: maxBlockSize,
		live:         make(map[unsafe.Pointer][]byte),
	}
}

// AllocateBlock returns a block of NextBlockSize bytes, then grows the
// size reported by the next call to NextBlockSize.
func (g *Growing) AllocateBlock() (arena.Block, error) {
	g.mu.Lock()
	size := g.next
	if grown := size * g.growthFactor; grown <= g.maxBlockSize {
		g.next = grown
	} else {
		g.next = g.maxBlockSize
	}
	g.mu.Unlock()

	buf := make([]byte, size)
	ptr := unsafe.Pointer(&buf[0])

	g.mu.Lock()
	g.live[ptr] = buf
	g.mu.Unlock()

	return arena.Block{Memory: ptr, Size: size}, nil
}

// DeallocateBlock drops the provider's reference to the block. It does not
// shrink NextBlockSize back down: growth is monotonic for the life of the
// provider.
func (g *Growing) DeallocateBlock(b arena.Block) {
	g.mu.Lock()
	delete(g.live, b.Memory)
	g.mu.Unlock()
}

// NextBlockSize reports the size the next AllocateBlock call will produce.
func (g *Growing) NextBlockSize() uintptr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
