// Package adapters provides decorators and trait-layer views over the
// core allocators in package arena: a PoolView/CollectionView satisfying
// arena.RawAllocator, a mutex-synchronised decorator, and a per-goroutine
// pool keyed by goroutine id.
package adapters

import (
	"unsafe"

	"github.com/memkit/arena"
)

var (
	_ arena.ComposableAllocator = (*PoolView)(nil)
	_ arena.ComposableAllocator = (*CollectionView)(nil)
	_ arena.RawAllocator        = (*Safe)(nil)
	_ arena.RawAllocator        = (*GoroutineLocalPool)(nil)
)

// PoolView adapts a fixed-node-size *arena.Pool to the arena.RawAllocator
// contract: every call's size/align is validated against the pool's fixed
// node size and alignment instead of being used to pick a size, since a
// Pool only ever hands out nodes of its one configured size.
type PoolView struct {
	pool  *arena.Pool
	align uintptr
}

// NewPoolView wraps pool, reporting align as the alignment every node is
// guaranteed to satisfy (the caller knows this from how the pool's
// provider carves blocks; it is not re-derived here).
func NewPoolView(pool *arena.Pool, align uintptr) *PoolView {
	return &PoolView{pool: pool, align: align}
}

// AllocateNode validates size and align against the pool's fixed node
// size/alignment and delegates to Pool.AllocateNode.
func (v *PoolView) AllocateNode(size, align uintptr) (unsafe.Pointer, error) {
	if size > v.pool.NodeSize() {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadNodeSize, Passed: size, Supported: v.pool.NodeSize()}
	}
	if align > v.align {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadAlignment, Passed: align, Supported: v.align}
	}
	return v.pool.AllocateNode()
}

// AllocateArray validates the per-element size against the pool's node
// size and align against the view's alignment, then delegates count to
// Pool.AllocateArray (served by NodePool and ArrayPool; a SmallNodePool
// reports BadArraySize).
func (v *PoolView) AllocateArray(count, size, align uintptr) (unsafe.Pointer, error) {
	if align > v.align {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadAlignment, Passed: align, Supported: v.align}
	}
	if size > v.pool.NodeSize() {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadNodeSize, Passed: size, Supported: v.pool.NodeSize()}
	}
	return v.pool.AllocateArray(int(count))
}

// DeallocateNode delegates to Pool.DeallocateNode.
func (v *PoolView) DeallocateNode(ptr unsafe.Pointer, size, align uintptr) {
	v.pool.DeallocateNode(ptr)
}

// DeallocateArray delegates to Pool.DeallocateArray.
func (v *PoolView) DeallocateArray(ptr unsafe.Pointer, count, size, align uintptr) {
	v.pool.DeallocateArray(ptr, int(count))
}

// MaxNodeSize returns the pool's fixed node size.
func (v *PoolView) MaxNodeSize() uintptr { return v.pool.NodeSize() }

// MaxArraySize returns the pool's fixed node size (an array allocation
// through this view is only ever one node wide per element).
func (v *PoolView) MaxArraySize() uintptr { return v.pool.NodeSize() }

// MaxAlignment returns the alignment this view was constructed with.
func (v *PoolView) MaxAlignment() uintptr { return v.align }

// TryAllocateNode is AllocateNode without an error return, for fallback
// chains (arena.ComposableAllocator).
func (v *PoolView) TryAllocateNode(size, align uintptr) (unsafe.Pointer, bool) {
	ptr, err := v.AllocateNode(size, align)
	return ptr, err == nil
}

// TryAllocateArray is AllocateArray without an error return.
func (v *PoolView) TryAllocateArray(count, size, align uintptr) (unsafe.Pointer, bool) {
	ptr, err := v.AllocateArray(count, size, align)
	return ptr, err == nil
}

// CollectionView adapts an *arena.PoolCollection to arena.RawAllocator:
// unlike PoolView, size is taken as-is on every call, since a collection's
// whole purpose is to serve a range of sizes.
type CollectionView struct {
	collection *arena.PoolCollection
	align      uintptr
}

// NewCollectionView wraps collection, reporting align as the alignment
// every node is guaranteed to satisfy.
func NewCollectionView(collection *arena.PoolCollection, align uintptr) *CollectionView {
	return &CollectionView{collection: collection, align: align}
}

func (v *CollectionView) AllocateNode(size, align uintptr) (unsafe.Pointer, error) {
	if align > v.align {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadAlignment, Passed: align, Supported: v.align}
	}
	return v.collection.AllocateNode(size)
}

// AllocateArray delegates to the collection's ordered-array buckets, so a
// multi-node request is served as a contiguous run rather than being
// forced through a single node bucket.
func (v *CollectionView) AllocateArray(count, size, align uintptr) (unsafe.Pointer, error) {
	if align > v.align {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadAlignment, Passed: align, Supported: v.align}
	}
	return v.collection.AllocateArray(int(count), size)
}

func (v *CollectionView) DeallocateNode(ptr unsafe.Pointer, size, align uintptr) {
	v.collection.DeallocateNode(ptr, size)
}

func (v *CollectionView) DeallocateArray(ptr unsafe.Pointer, count, size, align uintptr) {
	v.collection.DeallocateArray(ptr, int(count), size)
}

func (v *CollectionView) MaxNodeSize() uintptr { return v.collection.MaxNodeSize() }

// MaxArraySize bounds the per-element size of an array request; the run
// length is limited only by what a bucket's blocks hold contiguously.
func (v *CollectionView) MaxArraySize() uintptr { return v.collection.MaxArraySize() }

func (v *CollectionView) MaxAlignment() uintptr { return v.align }

// TryAllocateNode is AllocateNode without an error return, for fallback
// chains (arena.ComposableAllocator).
func (v *CollectionView) TryAllocateNode(size, align uintptr) (unsafe.Pointer, bool) {
	ptr, err := v.AllocateNode(size, align)
	return ptr, err == nil
}

// TryAllocateArray is AllocateArray without an error return.
func (v *CollectionView) TryAllocateArray(count, size, align uintptr) (unsafe.Pointer, bool) {
	ptr, err := v.AllocateArray(count, size, align)
	return ptr, err == nil
}
