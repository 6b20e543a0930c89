package arena

import (
	"sync/atomic"
	"unsafe"

	"github.com/memkit/arena/internal/alog"
)

// DebugMagic is a byte pattern written over memory regions in debug builds
// to make use-after-free, use-before-init, and buffer-overflow bugs visible
// under a debugger or memory inspector.
type DebugMagic byte

const (
	// internalMemory marks memory freshly obtained from a provider but not
	// yet handed out to a user.
	internalMemory DebugMagic = 0xAB
	// internalFreed marks internal memory in the process of being released
	// back to a provider.
	internalFreed DebugMagic = 0xCC
	// newMemory marks memory that has been handed out but not yet written
	// by the caller.
	newMemory DebugMagic = 0xCD
	// freedMemory marks memory sitting unused on a free list.
	freedMemory DebugMagic = 0xDD
	// alignmentMemory marks an alignment pad between allocations.
	alignmentMemory DebugMagic = 0xED
	// fenceMemory marks the front/back fence bytes around a payload.
	fenceMemory DebugMagic = 0xFD
)

// DebugConfig bundles the runtime knobs controlling debug instrumentation
// for one allocator instance. The zero value disables all instrumentation.
type DebugConfig struct {
	// FillEnabled controls whether magic-byte writes in this package
	// happen at all.
	FillEnabled bool
	// FenceSize is the number of bytes of fence written in front of and
	// behind each payload. Zero disables fences.
	FenceSize uintptr
	// PointerCheckEnabled validates pointers passed to deallocation
	// entry points via allocator-specific predicates.
	PointerCheckEnabled bool
	// DoubleDeallocCheckEnabled performs the (possibly O(n)) extra work
	// needed to detect a double-free.
	DoubleDeallocCheckEnabled bool
	// LeakCheckEnabled attaches a per-instance residual-byte counter that
	// fires the leak handler at end of life if non-zero.
	LeakCheckEnabled bool
}

// fenceSize is the effective fence width: fences only exist when fill is
// enabled, since unfilled fence bytes could never be verified.
func (cfg DebugConfig) fenceSize() uintptr {
	if cfg.FillEnabled {
		return cfg.FenceSize
	}
	return 0
}

// debugFill writes magic over [ptr, ptr+size) if fill is enabled. It is a
// no-op otherwise, including skipping the pointer arithmetic/size
// computation that would otherwise be wasted.
func debugFill(cfg DebugConfig, ptr unsafe.Pointer, size uintptr, magic DebugMagic) {
	if !cfg.FillEnabled || size == 0 {
		return
	}
	b := unsafe.Slice((*byte)(ptr), size)
	for i := range b {
		b[i] = byte(magic)
	}
}

// debugFillNew fills the fence bytes (front and back) with fenceMemory and
// the payload itself with newMemory, returning the payload start (memory
// advanced past the front fence).
func debugFillNew(cfg DebugConfig, mem unsafe.Pointer, nodeSize uintptr) unsafe.Pointer {
	fence := cfg.fenceSize()
	payload := unsafe.Add(mem, fence)
	debugFill(cfg, mem, fence, fenceMemory)
	debugFill(cfg, payload, nodeSize, newMemory)
	debugFill(cfg, unsafe.Add(payload, nodeSize), fence, fenceMemory)
	return payload
}

// debugFillFree is the inverse of debugFillNew: given a payload pointer, it
// checks the surrounding fences (firing the buffer-overflow handler on
// mismatch), fills the payload with freedMemory, and returns the start of
// the full node (memory including the front fence).
func debugFillFree(cfg DebugConfig, info AllocatorInfo, payload unsafe.Pointer, nodeSize uintptr) unsafe.Pointer {
	fence := cfg.fenceSize()
	mem := unsafe.Add(payload, -int(fence))
	checkFence(cfg, info, mem, fence, "front")
	checkFence(cfg, info, unsafe.Add(payload, nodeSize), fence, "back")
	debugFill(cfg, payload, nodeSize, freedMemory)
	return mem
}

func checkFence(cfg DebugConfig, info AllocatorInfo, fenceStart unsafe.Pointer, size uintptr, _ string) {
	if size == 0 {
		return
	}
	b := unsafe.Slice((*byte)(fenceStart), size)
	for i, v := range b {
		if v != byte(fenceMemory) {
			(*bufferOverflowHandler.Load())(uintptr(fenceStart), uint64(size), uintptr(unsafe.Pointer(&b[i])))
			return
		}
	}
}

// --- global debug handlers ---

// LeakHandler is called when an allocator's per-instance leak counter is
// non-zero at end of life. Only Pool and PoolCollection keep such a
// counter; there is no process-global counter. amount > 0 means leaked,
// amount < 0 means over-deallocated.
type LeakHandler func(info AllocatorInfo, amount int64)

// InvalidPointerHandler is called when a deallocation call receives a
// pointer the allocator cannot account for. The default handler logs and
// aborts the process.
type InvalidPointerHandler func(info AllocatorInfo, ptr unsafe.Pointer)

// BufferOverflowHandler is called when fence bytes are found corrupted.
// The default handler logs and aborts the process.
type BufferOverflowHandler func(blockAddr uintptr, blockSize uint64, badPtr uintptr)

var (
	leakHandler           atomic.Pointer[LeakHandler]
	invalidPointerHandler atomic.Pointer[InvalidPointerHandler]
	bufferOverflowHandler atomic.Pointer[BufferOverflowHandler]
)

func init() {
	var l LeakHandler = defaultLeakHandler
	leakHandler.Store(&l)
	var ip InvalidPointerHandler = defaultInvalidPointerHandler
	invalidPointerHandler.Store(&ip)
	var bo BufferOverflowHandler = defaultBufferOverflowHandler
	bufferOverflowHandler.Store(&bo)
}

func defaultLeakHandler(info AllocatorInfo, amount int64) {
	alog.Leak(info.Name, info.instanceAddr(), amount)
}

func defaultInvalidPointerHandler(info AllocatorInfo, ptr unsafe.Pointer) {
	alog.InvalidPointer(info.Name, info.instanceAddr(), uintptr(ptr))
	panic("arena: invalid pointer passed to deallocate")
}

func defaultBufferOverflowHandler(blockAddr uintptr, blockSize uint64, badPtr uintptr) {
	alog.BufferOverflow(blockAddr, blockSize, badPtr)
	panic("arena: buffer overflow detected")
}

// SetLeakHandler exchanges the global leak handler, returning the previous
// one. Passing nil restores the default (log, never abort).
func SetLeakHandler(h LeakHandler) (previous LeakHandler) {
	if h == nil {
		h = defaultLeakHandler
	}
	old := leakHandler.Swap(&h)
	return *old
}

// SetInvalidPointerHandler exchanges the global invalid-pointer handler,
// returning the previous one. Passing nil restores the default (log and
// abort).
func SetInvalidPointerHandler(h InvalidPointerHandler) (previous InvalidPointerHandler) {
	if h == nil {
		h = defaultInvalidPointerHandler
	}
	old := invalidPointerHandler.Swap(&h)
	return *old
}

// SetBufferOverflowHandler exchanges the global buffer-overflow handler,
// returning the previous one. Passing nil restores the default (log and
// abort).
func SetBufferOverflowHandler(h BufferOverflowHandler) (previous BufferOverflowHandler) {
	if h == nil {
		h = defaultBufferOverflowHandler
	}
	old := bufferOverflowHandler.Swap(&h)
	return *old
}

func reportInvalidPointer(info AllocatorInfo, ptr unsafe.Pointer) {
	(*invalidPointerHandler.Load())(info, ptr)
}

func reportLeak(info AllocatorInfo, amount int64) {
	if amount != 0 {
		(*leakHandler.Load())(info, amount)
	}
}
