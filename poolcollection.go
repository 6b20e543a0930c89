package arena

import (
	"unsafe"

	"github.com/memkit/arena/internal/alog"
	"github.com/memkit/arena/internal/freelist"
)

// PoolCollection buckets fixed-node pools by power-of-two node size behind
// one shared block provider. It keeps two parallel free-list arrays per
// size class: a non-ordered one serving node allocations and an
// address-ordered one serving array allocations, so that a contiguous run
// of nodes can always be found by a single ordered walk. AllocateNode /
// AllocateArray pick the bucket covering the requested size and, when that
// bucket is empty, carve a freshly provided block into nodes of that
// bucket's size alone.
type PoolCollection struct {
	nodes    *freelist.Array
	arrays   *freelist.OrderedArray
	provider BlockProvider
	blocks   blockStack
	debug    DebugConfig
	info     AllocatorInfo
	residual int64
}

// NewPoolCollection creates a collection of buckets covering node sizes
// from minNodeSize up to maxNodeSize.
func NewPoolCollection(minNodeSize, maxNodeSize uintptr, provider BlockProvider, opts ...ArenaOption) *PoolCollection {
	cfg := arenaConfig{name: "arena.PoolCollection"}
	for _, o := range opts {
		o(&cfg)
	}
	c := &PoolCollection{
		nodes:    freelist.NewArray(minNodeSize, maxNodeSize),
		arrays:   freelist.NewOrderedArray(minNodeSize, maxNodeSize),
		provider: provider,
		debug:    cfg.debug,
	}
	c.info = AllocatorInfo{Name: cfg.name, Instance: unsafe.Pointer(c)}
	return c
}

// AllocateNode returns a node from the bucket covering size bytes,
// growing that bucket from the provider if it is currently empty.
func (c *PoolCollection) AllocateNode(size uintptr) (unsafe.Pointer, error) {
	if size > c.nodes.MaxNodeSize() {
		return nil, reportBadAllocationSize(c.info, BadNodeSize, size, c.nodes.MaxNodeSize())
	}
	if ptr := c.nodes.Allocate(size); ptr != nil {
		debugFill(c.debug, ptr, c.nodes.BucketNodeSize(size), newMemory)
		c.countAllocated(c.nodes.BucketNodeSize(size))
		alog.Trace("PoolCollection.AllocateNode", c.info.Name, size, uintptr(ptr))
		return ptr, nil
	}
	alog.Trace("PoolCollection.AllocateNode grow", c.info.Name, size)
	if err := c.growNodes(size); err != nil {
		return nil, err
	}
	ptr := c.nodes.Allocate(size)
	if ptr == nil {
		return nil, reportOutOfMemory(c.info, size)
	}
	debugFill(c.debug, ptr, c.nodes.BucketNodeSize(size), newMemory)
	c.countAllocated(c.nodes.BucketNodeSize(size))
	return ptr, nil
}

// DeallocateNode returns ptr, sized for a size-byte request, to its
// bucket.
func (c *PoolCollection) DeallocateNode(ptr unsafe.Pointer, size uintptr) {
	alog.Trace("PoolCollection.DeallocateNode", c.info.Name, size, uintptr(ptr))
	if c.debug.PointerCheckEnabled && !c.Owns(ptr) {
		reportInvalidPointer(c.info, ptr)
		return
	}
	if c.debug.DoubleDeallocCheckEnabled && c.nodes.IsFree(ptr, size) {
		reportInvalidPointer(c.info, ptr)
		return
	}
	debugFill(c.debug, ptr, c.nodes.BucketNodeSize(size), freedMemory)
	c.nodes.Deallocate(ptr, size)
	c.countDeallocated(c.nodes.BucketNodeSize(size))
}

// AllocateArray returns count contiguous nodes, each from the bucket
// covering size bytes, growing that bucket's ordered list from the
// provider if no contiguous run is available.
func (c *PoolCollection) AllocateArray(count int, size uintptr) (unsafe.Pointer, error) {
	if size > c.arrays.MaxNodeSize() {
		return nil, reportBadAllocationSize(c.info, BadArraySize, size, c.arrays.MaxNodeSize())
	}
	nodeSize := c.arrays.BucketNodeSize(size)
	if ptr := c.arrays.AllocateArray(count, size); ptr != nil {
		debugFill(c.debug, ptr, uintptr(count)*nodeSize, newMemory)
		c.countAllocated(uintptr(count) * nodeSize)
		alog.Trace("PoolCollection.AllocateArray", c.info.Name, count, size, uintptr(ptr))
		return ptr, nil
	}
	alog.Trace("PoolCollection.AllocateArray grow", c.info.Name, count, size)
	if err := c.growArrays(size); err != nil {
		return nil, err
	}
	if ptr := c.arrays.AllocateArray(count, size); ptr != nil {
		debugFill(c.debug, ptr, uintptr(count)*nodeSize, newMemory)
		c.countAllocated(uintptr(count) * nodeSize)
		return ptr, nil
	}
	return nil, reportOutOfMemory(c.info, uintptr(count)*nodeSize)
}

// DeallocateArray returns a run of count nodes, previously obtained from
// AllocateArray with the same count and size, to its ordered bucket.
func (c *PoolCollection) DeallocateArray(ptr unsafe.Pointer, count int, size uintptr) {
	alog.Trace("PoolCollection.DeallocateArray", c.info.Name, count, size, uintptr(ptr))
	if c.debug.PointerCheckEnabled && !c.Owns(ptr) {
		reportInvalidPointer(c.info, ptr)
		return
	}
	if c.debug.DoubleDeallocCheckEnabled && c.arrays.IsFree(ptr, size) {
		reportInvalidPointer(c.info, ptr)
		return
	}
	nodeSize := c.arrays.BucketNodeSize(size)
	debugFill(c.debug, ptr, uintptr(count)*nodeSize, freedMemory)
	c.arrays.DeallocateArray(ptr, count, size)
	c.countDeallocated(uintptr(count) * nodeSize)
}

func (c *PoolCollection) growNodes(size uintptr) error {
	top, err := c.newBlock()
	if err != nil {
		return err
	}
	nodeSize := c.nodes.BucketNodeSize(size)
	c.nodes.Insert(top.Memory, int(top.Size/nodeSize), size)
	return nil
}

func (c *PoolCollection) growArrays(size uintptr) error {
	top, err := c.newBlock()
	if err != nil {
		return err
	}
	nodeSize := c.arrays.BucketNodeSize(size)
	c.arrays.Insert(top.Memory, int(top.Size/nodeSize), size)
	return nil
}

func (c *PoolCollection) newBlock() (Block, error) {
	block, err := c.provider.AllocateBlock()
	if err != nil {
		return Block{}, err
	}
	c.blocks.push(block)
	top := c.blocks.top()
	debugFill(c.debug, top.Memory, top.Size, internalMemory)
	return top, nil
}

func (c *PoolCollection) countAllocated(bytes uintptr) {
	if c.debug.LeakCheckEnabled {
		c.residual += int64(bytes)
	}
}

func (c *PoolCollection) countDeallocated(bytes uintptr) {
	if c.debug.LeakCheckEnabled {
		c.residual -= int64(bytes)
	}
}

// Owns reports whether addr falls inside a block owned by the collection.
func (c *PoolCollection) Owns(addr unsafe.Pointer) bool { return c.blocks.owns(addr) }

// MinNodeSize returns the smallest node size served by bucket 0.
func (c *PoolCollection) MinNodeSize() uintptr { return c.nodes.MinNodeSize() }

// MaxNodeSize returns the largest node size any bucket can serve.
func (c *PoolCollection) MaxNodeSize() uintptr { return c.nodes.MaxNodeSize() }

// MaxArraySize returns the largest per-element size the ordered array
// buckets can serve; the run length is bounded only by contiguous block
// capacity.
func (c *PoolCollection) MaxArraySize() uintptr { return c.arrays.MaxNodeSize() }

// Capacity returns the total bytes currently held across all backing
// blocks.
func (c *PoolCollection) Capacity() uintptr { return c.blocks.capacity() }

// Release returns every backing block to the provider, making the
// collection unusable. With leak checking enabled, a non-zero lifetime
// residual fires the leak handler first; leak reports never abort.
func (c *PoolCollection) Release() {
	if c.debug.LeakCheckEnabled {
		reportLeak(c.info, c.residual)
		c.residual = 0
	}
	for !c.blocks.empty() {
		c.provider.DeallocateBlock(c.blocks.pop())
	}
}
