package adapters

import (
	"unsafe"

	"github.com/memkit/arena"
	"github.com/timandy/routine"
)

// GoroutineLocalPool gives every goroutine its own arena.RawAllocator,
// created lazily on first use via factory. Unlike Safe, this never blocks
// concurrent goroutines on each other, at the cost of one allocator
// instance (and its backing blocks) per goroutine that ever calls in.
// Lifetime follows the goroutines: each allocator lives as long as its
// goroutine's thread-local storage does.
type GoroutineLocalPool struct {
	factory func() arena.RawAllocator
	local   routine.ThreadLocal[arena.RawAllocator]
}

// NewGoroutineLocalPool creates a GoroutineLocalPool that builds a new
// allocator, via factory, the first time each goroutine calls into it.
func NewGoroutineLocalPool(factory func() arena.RawAllocator) *GoroutineLocalPool {
	return &GoroutineLocalPool{
		factory: factory,
		local:   routine.NewThreadLocal[arena.RawAllocator](),
	}
}

func (g *GoroutineLocalPool) get() arena.RawAllocator {
	if a := g.local.Get(); a != nil {
		return a
	}
	a := g.factory()
	g.local.Set(a)
	return a
}

func (g *GoroutineLocalPool) AllocateNode(size, align uintptr) (unsafe.Pointer, error) {
	return g.get().AllocateNode(size, align)
}

func (g *GoroutineLocalPool) AllocateArray(count, size, align uintptr) (unsafe.Pointer, error) {
	return g.get().AllocateArray(count, size, align)
}

func (g *GoroutineLocalPool) DeallocateNode(ptr unsafe.Pointer, size, align uintptr) {
	g.get().DeallocateNode(ptr, size, align)
}

func (g *GoroutineLocalPool) DeallocateArray(ptr unsafe.Pointer, count, size, align uintptr) {
	g.get().DeallocateArray(ptr, count, size, align)
}

func (g *GoroutineLocalPool) MaxNodeSize() uintptr  { return g.get().MaxNodeSize() }
func (g *GoroutineLocalPool) MaxArraySize() uintptr { return g.get().MaxArraySize() }
func (g *GoroutineLocalPool) MaxAlignment() uintptr { return g.get().MaxAlignment() }
