package arena

import (
	"unsafe"

	"github.com/memkit/arena/internal/alog"
)

// Marker is an opaque snapshot of a GrowingStack's state, usable with
// Unwind. Markers are only valid for unwinding backward; unwinding to one
// invalidates every marker taken after it.
type Marker struct {
	depth int
	bump  unsafe.Pointer
}

// GrowingStack composes an Arena with a FixedStack: when the current fixed
// stack cannot fit a request, it asks the arena for a new block, which
// becomes the new fixed stack.
type GrowingStack struct {
	arena *Arena
	fixed *FixedStack
	debug DebugConfig
	info  AllocatorInfo
}

// NewGrowingStack creates a GrowingStack over arena, immediately requesting
// one block to seed the fixed stack.
func NewGrowingStack(arena *Arena, opts ...ArenaOption) (*GrowingStack, error) {
	cfg := arenaConfig{name: "arena.GrowingStack"}
	for _, o := range opts {
		o(&cfg)
	}
	g := &GrowingStack{arena: arena, debug: cfg.debug}
	g.info = AllocatorInfo{Name: cfg.name, Instance: unsafe.Pointer(g)}
	block, err := arena.AllocateBlock()
	if err != nil {
		return nil, err
	}
	g.fixed = newFixedStackFromBlock(block, cfg.debug, g.info)
	return g, nil
}

func newFixedStackFromBlock(block Block, debug DebugConfig, info AllocatorInfo) *FixedStack {
	return &FixedStack{start: block.Memory, cur: block.Memory, end: unsafe.Add(block.Memory, block.Size), debug: debug, info: info}
}

// Allocate tries the current fixed stack; on failure it grows the arena by
// one block and retries once, reporting BadNodeSize if size exceeds the
// arena's NextBlockSize or OutOfMemory otherwise.
func (g *GrowingStack) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	if p := g.fixed.Allocate(size, align); p != nil {
		alog.Trace("GrowingStack.Allocate", g.info.Name, size, align, uintptr(p))
		return p, nil
	}
	alog.Trace("GrowingStack.Allocate grow", g.info.Name, size, align)

	block, err := g.arena.AllocateBlock()
	if err != nil {
		return nil, err
	}
	g.fixed = newFixedStackFromBlock(block, g.debug, g.info)

	if p := g.fixed.Allocate(size, align); p != nil {
		return p, nil
	}

	if size > g.arena.NextBlockSize() {
		return nil, reportBadAllocationSize(g.info, BadNodeSize, size, g.arena.NextBlockSize())
	}
	return nil, reportOutOfMemory(g.info, size)
}

// Top returns a Marker capturing the current arena depth and bump pointer.
func (g *GrowingStack) Top() Marker {
	return Marker{depth: g.arena.Size(), bump: g.fixed.Top()}
}

// Unwind pops arena blocks until the marker's recorded depth, then resets
// the bump pointer. Unwinding strictly past the first block is undefined.
func (g *GrowingStack) Unwind(m Marker) {
	alog.Trace("GrowingStack.Unwind", g.info.Name, m.depth, uintptr(m.bump))
	for g.arena.Size() > m.depth {
		g.arena.DeallocateBlock()
	}
	if g.arena.Size() == 0 {
		panic("arena: GrowingStack.Unwind past the first block")
	}
	block := g.arena.CurrentBlock()
	g.fixed = &FixedStack{start: block.Memory, cur: m.bump, end: unsafe.Add(block.Memory, block.Size), debug: g.debug, info: g.info}
}

// ShrinkToFit delegates to the underlying arena.
func (g *GrowingStack) ShrinkToFit() { g.arena.ShrinkToFit() }

// Arena exposes the underlying Arena, e.g. for Metrics().
func (g *GrowingStack) Arena() *Arena { return g.arena }
