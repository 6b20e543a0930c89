package arena

import (
	"unsafe"

	"github.com/memkit/arena/internal/alog"
	"github.com/memkit/arena/internal/freelist"
)

// PoolKind selects which free-list flavour a Pool uses internally.
type PoolKind int

const (
	// NodePool uses an intrusive singly-linked list: the fastest option,
	// but doesn't preserve address order, so its array allocation is a
	// slow scan by address.
	NodePool PoolKind = iota
	// ArrayPool uses an address-ordered XOR-linked list, so that
	// AllocateArray can locate physically contiguous runs of nodes.
	ArrayPool
	// SmallNodePool uses a chunked small-object list: lower per-node
	// bookkeeping overhead when nodes are small and numerous.
	SmallNodePool
)

// poolFreeList is the common surface of the three freelist flavours a Pool
// can be backed by.
type poolFreeList interface {
	Allocate() unsafe.Pointer
	Deallocate(unsafe.Pointer)
	IsFree(unsafe.Pointer) bool
	Size() int
	Empty() bool
}

// arrayFreeList is the extra surface of the flavours that can serve
// physically contiguous runs (intrusive and ordered lists; the chunked
// small-object list cannot, its slots never span chunks).
type arrayFreeList interface {
	AllocateArray(n int) unsafe.Pointer
	DeallocateArray(ptr unsafe.Pointer, n int)
}

// Pool is a fixed-node-size allocator that refills its free list, one
// block at a time, from a BlockProvider. Unlike FixedStack/GrowingStack,
// deallocated nodes are reusable individually rather than only in LIFO
// order.
//
// With fill enabled and a non-zero fence size, every slot is widened by a
// fence on each side; the fence bytes are verified on deallocation and a
// mismatch fires the buffer-overflow handler. FenceSize should be a
// multiple of the intended node alignment, since the payload starts one
// fence past the slot.
type Pool struct {
	kind     PoolKind
	nodeSize uintptr
	slotSize uintptr // nodeSize plus both fences; what the free list manages
	fence    uintptr
	provider BlockProvider
	blocks   blockStack
	list     poolFreeList
	debug    DebugConfig
	info     AllocatorInfo
	residual int64 // bytes allocated minus bytes deallocated, when leak checking
}

// NewPool creates an empty pool of the given kind and fixed node size.
func NewPool(kind PoolKind, nodeSize uintptr, provider BlockProvider, opts ...ArenaOption) *Pool {
	cfg := arenaConfig{name: "arena.Pool"}
	for _, o := range opts {
		o(&cfg)
	}
	p := &Pool{kind: kind, nodeSize: nodeSize, provider: provider, debug: cfg.debug}
	p.fence = cfg.debug.fenceSize()
	p.slotSize = nodeSize + 2*p.fence
	p.info = AllocatorInfo{Name: cfg.name, Instance: unsafe.Pointer(p)}
	switch kind {
	case NodePool:
		l := freelist.NewList(p.slotSize)
		p.list, p.slotSize = l, l.NodeSize()
	case ArrayPool:
		l := freelist.NewOrderedList(p.slotSize)
		p.list, p.slotSize = l, l.NodeSize()
	case SmallNodePool:
		l := freelist.NewSmallList(p.slotSize)
		p.list, p.slotSize = l, l.NodeSize()
	default:
		panic("arena: unknown PoolKind")
	}
	return p
}

// Kind returns the free-list flavour backing the pool.
func (p *Pool) Kind() PoolKind { return p.kind }

// NodeSize returns the fixed node size the pool serves.
func (p *Pool) NodeSize() uintptr { return p.nodeSize }

// AllocateNode returns one node, growing the pool by a block from its
// provider if the free list is currently empty.
func (p *Pool) AllocateNode() (unsafe.Pointer, error) {
	if raw := p.list.Allocate(); raw != nil {
		p.countAllocated(p.nodeSize)
		alog.Trace("Pool.AllocateNode", p.info.Name, uintptr(raw))
		return debugFillNew(p.debug, raw, p.nodeSize), nil
	}
	alog.Trace("Pool.AllocateNode grow", p.info.Name, p.nodeSize)
	if err := p.grow(); err != nil {
		return nil, err
	}
	raw := p.list.Allocate()
	if raw == nil {
		return nil, reportOutOfMemory(p.info, p.nodeSize)
	}
	p.countAllocated(p.nodeSize)
	return debugFillNew(p.debug, raw, p.nodeSize), nil
}

// DeallocateNode returns ptr, previously obtained from AllocateNode, to
// the pool's free list. The fence bytes around the payload are verified
// first when fences are configured.
func (p *Pool) DeallocateNode(ptr unsafe.Pointer) {
	alog.Trace("Pool.DeallocateNode", p.info.Name, uintptr(ptr))
	if !p.checkDealloc(ptr) {
		return
	}
	raw := debugFillFree(p.debug, p.info, ptr, p.nodeSize)
	p.list.Deallocate(raw)
	p.countDeallocated(p.nodeSize)
}

// checkDealloc validates the payload pointer against the configured debug
// checks, firing the invalid-pointer handler and reporting false if any
// fails.
func (p *Pool) checkDealloc(ptr unsafe.Pointer) bool {
	if p.debug.PointerCheckEnabled && !p.Owns(ptr) {
		reportInvalidPointer(p.info, ptr)
		return false
	}
	if p.debug.DoubleDeallocCheckEnabled && p.list.IsFree(unsafe.Add(ptr, -int(p.fence))) {
		reportInvalidPointer(p.info, ptr)
		return false
	}
	return true
}

// AllocateArray returns n physically contiguous nodes as a single run. It
// is supported by NodePool (linear scan) and ArrayPool (ordered walk);
// SmallNodePool fails with *BadAllocationSizeError, since its slots never
// span chunk boundaries.
func (p *Pool) AllocateArray(n int) (unsafe.Pointer, error) {
	list, ok := p.list.(arrayFreeList)
	if !ok {
		size := uintptr(n) * p.nodeSize
		return nil, reportBadAllocationSize(p.info, BadArraySize, size, p.nodeSize)
	}
	if raw := list.AllocateArray(n); raw != nil {
		p.countAllocated(uintptr(n) * p.nodeSize)
		alog.Trace("Pool.AllocateArray", p.info.Name, uintptr(raw), n)
		return debugFillNew(p.debug, raw, p.arrayPayload(n)), nil
	}
	alog.Trace("Pool.AllocateArray grow", p.info.Name, n)
	if err := p.grow(); err != nil {
		return nil, err
	}
	if raw := list.AllocateArray(n); raw != nil {
		p.countAllocated(uintptr(n) * p.nodeSize)
		return debugFillNew(p.debug, raw, p.arrayPayload(n)), nil
	}
	return nil, reportOutOfMemory(p.info, uintptr(n)*p.nodeSize)
}

// arrayPayload is the user-visible span of an n-slot run: everything
// between the run's outermost fences.
func (p *Pool) arrayPayload(n int) uintptr { return uintptr(n)*p.slotSize - 2*p.fence }

// DeallocateArray returns a contiguous run of n nodes, previously obtained
// from AllocateArray, to the pool.
func (p *Pool) DeallocateArray(ptr unsafe.Pointer, n int) {
	alog.Trace("Pool.DeallocateArray", p.info.Name, uintptr(ptr), n)
	list := p.list.(arrayFreeList)
	if !p.checkDealloc(ptr) {
		return
	}
	raw := debugFillFree(p.debug, p.info, ptr, p.arrayPayload(n))
	list.DeallocateArray(raw, n)
	p.countDeallocated(uintptr(n) * p.nodeSize)
}

func (p *Pool) countAllocated(bytes uintptr) {
	if p.debug.LeakCheckEnabled {
		p.residual += int64(bytes)
	}
}

func (p *Pool) countDeallocated(bytes uintptr) {
	if p.debug.LeakCheckEnabled {
		p.residual -= int64(bytes)
	}
}

func (p *Pool) grow() error {
	block, err := p.provider.AllocateBlock()
	if err != nil {
		return err
	}
	p.blocks.push(block)
	top := p.blocks.top()
	debugFill(p.debug, top.Memory, top.Size, internalMemory)

	switch l := p.list.(type) {
	case *freelist.List:
		l.InsertRange(top.Memory, int(top.Size/p.slotSize))
	case *freelist.OrderedList:
		l.DeallocateArray(top.Memory, int(top.Size/p.slotSize))
	case *freelist.SmallList:
		l.InsertBlock(top.Memory, top.Size)
	}
	return nil
}

// Reserve grows the pool from its provider until at least n nodes are
// free, so a burst of n allocations cannot fail mid-way.
func (p *Pool) Reserve(n int) error {
	for p.list.Size() < n {
		if err := p.grow(); err != nil {
			return err
		}
	}
	return nil
}

// Owns reports whether ptr falls inside a block currently owned by the
// pool.
func (p *Pool) Owns(ptr unsafe.Pointer) bool { return p.blocks.owns(ptr) }

// Size returns the number of free nodes currently available.
func (p *Pool) Size() int { return p.list.Size() }

// Capacity returns the total bytes held across all of the pool's blocks.
func (p *Pool) Capacity() uintptr { return p.blocks.capacity() }

// Release returns every backing block to the provider, making the pool
// unusable. With leak checking enabled, a non-zero residual (bytes
// allocated minus bytes deallocated over the pool's lifetime) fires the
// leak handler; leak reports never abort.
func (p *Pool) Release() {
	if p.debug.LeakCheckEnabled {
		reportLeak(p.info, p.residual)
		p.residual = 0
	}
	for !p.blocks.empty() {
		p.provider.DeallocateBlock(p.blocks.pop())
	}
}
