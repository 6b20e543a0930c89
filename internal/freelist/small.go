package freelist

import "unsafe"

// MaxChunkSlots is the largest number of nodes a single chunk can index,
// fixed by the 1-byte in-slot free-index encoding.
const MaxChunkSlots = 255

const noFreeSlot = 0xFF

// smallChunk is the header placed at the start of every chunk's backing
// memory. The slots that follow it are either live user data or, while
// free, hold a 1-byte index (in their first byte) chaining them into this
// chunk's own free list.
type smallChunk struct {
	prev, next *smallChunk
	first      uint8
	freeCount  uint8
	capacity   uint8
}

var smallChunkHeaderSize = smallRoundUp(unsafe.Sizeof(smallChunk{}), unsafe.Sizeof(uintptr(0)))

func smallRoundUp(n, multiple uintptr) uintptr {
	if rem := n % multiple; rem != 0 {
		return n + multiple - rem
	}
	return n
}

func (c *smallChunk) dataStart() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(c), smallChunkHeaderSize)
}

func (c *smallChunk) contains(ptr unsafe.Pointer, nodeSize uintptr) bool {
	start := uintptr(c.dataStart())
	end := start + uintptr(c.capacity)*nodeSize
	p := uintptr(ptr)
	return p >= start && p < end
}

// MemBlock is a plain (pointer, size) pair, used to hand fully-empty chunks
// back to a caller for release to a block provider.
type MemBlock struct {
	Memory unsafe.Pointer
	Size   uintptr
}

// SmallList is a chunked small-object free list: rather than one link per
// free node, a chunk of up to MaxChunkSlots contiguous slots shares a
// single header, and free slots within a chunk chain together via a 1-byte
// index stored inline. Chunks live on a circular doubly-linked list kept
// sorted by address, searched in both directions from a remembered cursor
// for a chunk with a free slot (Allocate) or for the chunk owning a
// pointer (Deallocate), so the search converges in O(chunks) worst case
// and O(1) on the common nearby-chunk workload.
type SmallList struct {
	nodeSize      uintptr
	chunks        *smallChunk // lowest-address chunk, or nil
	chunkCount    int
	allocCursor   *smallChunk
	deallocCursor *smallChunk
	size          int
	capacity      int
}

// NewSmallList creates an empty chunked list of nodes at least 1 byte
// (large enough to hold the in-slot free index).
func NewSmallList(nodeSize uintptr) *SmallList {
	if nodeSize < 1 {
		nodeSize = 1
	}
	return &SmallList{nodeSize: nodeSize}
}

// NodeSize returns the fixed size of every node in the list.
func (l *SmallList) NodeSize() uintptr { return l.nodeSize }

// Size returns the number of free nodes across all chunks.
func (l *SmallList) Size() int { return l.size }

// Capacity returns the total number of node-sized slots across all chunks,
// free and allocated.
func (l *SmallList) Capacity() int { return l.capacity }

// Empty reports whether every chunk's free count is zero.
func (l *SmallList) Empty() bool { return l.size == 0 }

// InsertBlock carves a raw memory block into as many full chunks as fit,
// plus one trailing partial chunk for whatever remains, linking each into
// the address-sorted circular chunk list.
func (l *SmallList) InsertBlock(mem unsafe.Pointer, blockSize uintptr) {
	for blockSize > smallChunkHeaderSize {
		capacity := (blockSize - smallChunkHeaderSize) / l.nodeSize
		if capacity == 0 {
			return
		}
		if capacity > MaxChunkSlots {
			capacity = MaxChunkSlots
		}
		l.insertChunk(mem, capacity)
		consumed := smallChunkHeaderSize + capacity*l.nodeSize
		mem = unsafe.Add(mem, consumed)
		blockSize -= consumed
	}
}

func (l *SmallList) insertChunk(mem unsafe.Pointer, capacity uintptr) {
	c := (*smallChunk)(mem)
	*c = smallChunk{first: 0, freeCount: uint8(capacity), capacity: uint8(capacity)}

	data := c.dataStart()
	for i := uintptr(0); i < capacity; i++ {
		slot := unsafe.Add(data, i*l.nodeSize)
		next := uint8(i + 1)
		if i == capacity-1 {
			next = noFreeSlot
		}
		*(*uint8)(slot) = next
	}

	switch {
	case l.chunks == nil:
		c.prev, c.next = c, c
		l.chunks = c
		l.allocCursor = c
		l.deallocCursor = c
	default:
		// Walk ascending from the lowest-address chunk to the first chunk
		// past c; inserting before it keeps the cycle address-sorted. If
		// every chunk precedes c, the walk wraps back to the head and c
		// lands in the tail position.
		at := l.chunks
		for i := 0; i < l.chunkCount; i++ {
			if uintptr(unsafe.Pointer(at)) > uintptr(mem) {
				break
			}
			at = at.next
			if at == l.chunks {
				break
			}
		}
		c.prev = at.prev
		c.next = at
		at.prev.next = c
		at.prev = c
		if uintptr(mem) < uintptr(unsafe.Pointer(l.chunks)) {
			l.chunks = c
		}
	}
	l.chunkCount++
	l.size += int(capacity)
	l.capacity += int(capacity)
}

// Allocate returns a free slot from the nearest non-full chunk, scanning
// the circular list in alternating directions from the alloc cursor, or
// nil if every chunk is full.
func (l *SmallList) Allocate() unsafe.Pointer {
	c := l.findNonFull()
	if c == nil {
		return nil
	}
	l.allocCursor = c

	data := c.dataStart()
	idx := c.first
	slot := unsafe.Add(data, uintptr(idx)*l.nodeSize)
	c.first = *(*uint8)(slot)
	c.freeCount--
	l.size--
	return slot
}

func (l *SmallList) findNonFull() *smallChunk {
	if l.chunks == nil {
		return nil
	}
	fwd := l.allocCursor
	if fwd == nil {
		fwd = l.chunks
	}
	bwd := fwd
	for i := 0; i < l.chunkCount; i++ {
		if fwd.freeCount > 0 {
			return fwd
		}
		fwd = fwd.next
		if bwd.freeCount > 0 {
			return bwd
		}
		bwd = bwd.prev
	}
	return nil
}

// Deallocate returns ptr, previously obtained from Allocate, to its
// owning chunk's free list. ptr must belong to some chunk on the list.
func (l *SmallList) Deallocate(ptr unsafe.Pointer) {
	c := l.findOwner(ptr)
	if c == nil {
		panic("freelist: pointer does not belong to any chunk")
	}
	idx := uint8((uintptr(ptr) - uintptr(c.dataStart())) / l.nodeSize)
	*(*uint8)(ptr) = c.first
	c.first = idx
	c.freeCount++
	l.size++
	l.deallocCursor = c
}

// Owns reports whether ptr falls inside any chunk's slot array. This is
// the fast, address-range-only ownership check; it says nothing about
// whether the slot is currently allocated.
func (l *SmallList) Owns(ptr unsafe.Pointer) bool { return l.findOwner(ptr) != nil }

// findOwner locates the chunk containing ptr, extending the search in
// both directions from the dealloc cursor until found or every chunk has
// been visited.
func (l *SmallList) findOwner(ptr unsafe.Pointer) *smallChunk {
	if l.chunks == nil {
		return nil
	}
	fwd := l.deallocCursor
	if fwd == nil {
		fwd = l.chunks
	}
	bwd := fwd
	for i := 0; i < l.chunkCount; i++ {
		if fwd.contains(ptr, l.nodeSize) {
			return fwd
		}
		fwd = fwd.next
		if bwd.contains(ptr, l.nodeSize) {
			return bwd
		}
		bwd = bwd.prev
	}
	return nil
}

// IsFree reports whether ptr is currently a free slot, by walking its
// owning chunk's internal index chain. This is the slow containment check
// reserved for the double-free validator in debug configurations; a
// pointer not owned by any chunk reports false.
func (l *SmallList) IsFree(ptr unsafe.Pointer) bool {
	c := l.findOwner(ptr)
	if c == nil {
		return false
	}
	idx := uint8((uintptr(ptr) - uintptr(c.dataStart())) / l.nodeSize)
	data := c.dataStart()
	for cur := c.first; cur != noFreeSlot; {
		if cur == idx {
			return true
		}
		cur = *(*uint8)(unsafe.Add(data, uintptr(cur)*l.nodeSize))
	}
	return false
}

// ReclaimEmpty unlinks and returns every chunk that is currently entirely
// free, for the caller to release back to its block provider.
func (l *SmallList) ReclaimEmpty() []MemBlock {
	if l.chunks == nil {
		return nil
	}
	var empties []*smallChunk
	for c, first := l.chunks, true; first || c != l.chunks; c = c.next {
		first = false
		if c.freeCount == c.capacity {
			empties = append(empties, c)
		}
	}

	out := make([]MemBlock, 0, len(empties))
	for _, c := range empties {
		size := smallChunkHeaderSize + uintptr(c.capacity)*l.nodeSize
		if c.next == c {
			l.chunks = nil
		} else {
			if l.chunks == c {
				l.chunks = c.next
			}
			c.prev.next = c.next
			c.next.prev = c.prev
		}
		if l.allocCursor == c {
			l.allocCursor = l.chunks
		}
		if l.deallocCursor == c {
			l.deallocCursor = l.chunks
		}
		l.chunkCount--
		l.size -= int(c.capacity)
		l.capacity -= int(c.capacity)
		out = append(out, MemBlock{Memory: unsafe.Pointer(c), Size: size})
	}
	return out
}
