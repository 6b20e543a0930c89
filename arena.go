// Package arena implements a family of user-space memory allocators for
// systems that need bounded latency, predictable fragmentation, and cheap
// bulk release: a block arena that layers caching over a block provider, a
// fixed and a growing bump-pointer stack, an N-way iteration stack, three
// free-list flavours (intrusive, ordered/XOR, chunked small-object), and
// pool / pool-collection allocators built from them.
//
// Every one of these has a different shape (stacks only unwind in LIFO
// order and never individually deallocate; pools allocate and deallocate
// fixed-size nodes one at a time; pool collections take a size per call).
// RawAllocator is the uniform contract adapters build against instead of
// depending on a concrete type; package adapters provides a view for each
// shape that needs one.
//
// # Basic usage
//
//	p := providers.NewHeap(64 * 1024)
//	a := arena.NewArena(p)
//	defer a.Release()
//
//	s, err := arena.NewGrowingStack(a)
//	if err != nil {
//		return err
//	}
//	ptr, err := s.Allocate(128, 8)
//
// # Thread safety
//
// Every allocator in this package is single-threaded by design: none of
// them synchronise internally. Use the adapters package, or a simple
// sync.Mutex of your own, to share one across goroutines.
package arena

import (
	"unsafe"

	"github.com/memkit/arena/internal/alog"
)

// ArenaOption configures a NewArena call.
type ArenaOption func(*arenaConfig)

type arenaConfig struct {
	cached bool
	debug  DebugConfig
	name   string
}

// WithCache enables caching of deallocated blocks (the default). A cached
// arena never frees a block back to the provider except via ShrinkToFit;
// an uncached arena releases it immediately.
func WithCache(enabled bool) ArenaOption {
	return func(c *arenaConfig) { c.cached = enabled }
}

// WithDebugConfig attaches debug instrumentation settings to the allocator
// being constructed. Every constructor in this package takes ArenaOptions,
// and each allocator uses only the settings passed to its own constructor:
// a GrowingStack does not inherit the settings of the Arena it is built on.
func WithDebugConfig(cfg DebugConfig) ArenaOption {
	return func(c *arenaConfig) { c.debug = cfg }
}

// WithDebugFill toggles magic-byte fills without replacing the rest of the
// debug configuration.
func WithDebugFill(enabled bool) ArenaOption {
	return func(c *arenaConfig) { c.debug.FillEnabled = enabled }
}

// WithFenceSize sets the per-payload fence width. Fences are only written
// (and verified) when fill is enabled.
func WithFenceSize(n uintptr) ArenaOption {
	return func(c *arenaConfig) { c.debug.FenceSize = n }
}

// WithLeakCheck toggles the per-instance residual-byte counter checked at
// end of life.
func WithLeakCheck(enabled bool) ArenaOption {
	return func(c *arenaConfig) { c.debug.LeakCheckEnabled = enabled }
}

// WithPointerCheck toggles ownership validation of pointers passed to
// deallocation entry points.
func WithPointerCheck(enabled bool) ArenaOption {
	return func(c *arenaConfig) { c.debug.PointerCheckEnabled = enabled }
}

// WithDoubleDeallocCheck toggles the stronger (possibly O(n)) double-free
// validation on deallocation paths.
func WithDoubleDeallocCheck(enabled bool) ArenaOption {
	return func(c *arenaConfig) { c.debug.DoubleDeallocCheckEnabled = enabled }
}

// WithName overrides the allocator name reported in AllocatorInfo / logs.
func WithName(name string) ArenaOption {
	return func(c *arenaConfig) { c.name = name }
}

// Arena pairs a block stack (used) with an optional cache stack (cached)
// and a block provider. AllocateBlock returns a cached block when
// available, otherwise asks the provider; DeallocateBlock reverses this,
// subject to WithCache.
type Arena struct {
	provider BlockProvider
	used     blockStack
	cached   blockStack
	cache    bool
	debug    DebugConfig
	info     AllocatorInfo
}

// NewArena constructs an Arena over the given BlockProvider. By default
// freed blocks are cached for reuse; pass WithCache(false) to release them
// back to the provider immediately instead.
func NewArena(provider BlockProvider, opts ...ArenaOption) *Arena {
	cfg := arenaConfig{cached: true, name: "arena.Arena"}
	for _, o := range opts {
		o(&cfg)
	}
	a := &Arena{provider: provider, cache: cfg.cached, debug: cfg.debug}
	a.info = AllocatorInfo{Name: cfg.name, Instance: unsafe.Pointer(a)}
	return a
}

// AllocateBlock pops the cache if non-empty, otherwise requests a new
// block from the provider; either way the block is pushed onto used and
// its payload filled with the internalMemory debug byte.
func (a *Arena) AllocateBlock() (Block, error) {
	if a.cache && !a.cached.empty() {
		a.used.steal(&a.cached)
	} else {
		b, err := a.provider.AllocateBlock()
		if err != nil {
			return Block{}, err
		}
		a.used.push(b)
	}
	top := a.used.top()
	debugFill(a.debug, top.Memory, top.Size, internalMemory)
	alog.Trace("Arena.AllocateBlock", a.info.Name, uintptr(top.Memory), top.Size)
	return top, nil
}

// DeallocateBlock moves the top of used to cached (if caching is
// enabled) or releases it via the provider.
func (a *Arena) DeallocateBlock() {
	top := a.used.top()
	debugFill(a.debug, top.Memory, top.Size, internalFreed)
	alog.Trace("Arena.DeallocateBlock", a.info.Name, uintptr(top.Memory), top.Size)
	if a.cache {
		a.cached.steal(&a.used)
		return
	}
	a.provider.DeallocateBlock(a.used.pop())
}

// CurrentBlock returns the user-visible region of the most recently
// pushed block without popping it.
func (a *Arena) CurrentBlock() Block { return a.used.top() }

// ShrinkToFit drains the cache, releasing every cached block to the
// provider in the reverse of cache-insertion order.
func (a *Arena) ShrinkToFit() {
	for !a.cached.empty() {
		a.provider.DeallocateBlock(a.cached.pop())
	}
}

// Owns reports whether addr falls inside a block currently owned by the
// arena (used or cached). O(n) in the number of blocks.
func (a *Arena) Owns(addr unsafe.Pointer) bool {
	return a.used.owns(addr) || a.cached.owns(addr)
}

// Size returns the number of blocks currently in use.
func (a *Arena) Size() int { return a.used.size() }

// CacheSize returns the number of blocks sitting in the cache.
func (a *Arena) CacheSize() int { return a.cached.size() }

// Capacity is Size's total usable bytes plus CacheSize's; it is
// monotonic-non-decreasing between ShrinkToFit calls for a cached arena,
// and equal to the in-use size for an uncached one.
func (a *Arena) Capacity() uintptr { return a.used.capacity() + a.cached.capacity() }

// NextBlockSize reports the usable size of the next block: the provider's
// next block size minus the per-block header.
func (a *Arena) NextBlockSize() uintptr {
	next := a.provider.NextBlockSize()
	if next <= blockStackHeaderSize {
		return 0
	}
	return next - blockStackHeaderSize
}

// Release drains the used stack back through the provider (after the
// cache), making the arena unusable. An arena owns its blocks until
// released, at which point the cache drains first and then the used stack
// unwinds through the provider.
func (a *Arena) Release() {
	a.ShrinkToFit()
	for !a.used.empty() {
		a.provider.DeallocateBlock(a.used.pop())
	}
}

// ArenaMetrics is a snapshot of an Arena's bookkeeping: a plain value type
// safe to copy and log.
type ArenaMetrics struct {
	Size      int
	CacheSize int
	Capacity  uintptr
}

// Metrics returns a snapshot of the arena's current state.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{Size: a.Size(), CacheSize: a.CacheSize(), Capacity: a.Capacity()}
}
