package freelist

import "unsafe"

// xorNode is the per-free-node header for an OrderedList: the XOR of the
// addresses of its predecessor and successor in address order. Walking the
// chain in either direction only needs the address you came from.
type xorNode struct {
	xorPtr uintptr
}

func nextOf(nodeAddr, cameFromAddr unsafe.Pointer) unsafe.Pointer {
	n := (*xorNode)(nodeAddr)
	return unsafe.Pointer(n.xorPtr ^ uintptr(cameFromAddr))
}

// OrderedList is an address-ordered, XOR-linked doubly-linked free list.
// Keeping the list in address order lets AllocateArray find a contiguous
// run of n free nodes with a single forward scan, which is what a pool
// collection built on top of this list uses to serve array requests.
//
// Two heap-allocated proxy nodes, begin and end, bookend the real entries
// so that every real node has two real XOR-neighbours to compute against;
// nothing has to special-case the ends of the chain. Because their
// addresses are woven into the XOR chain, an OrderedList must always be
// used through a pointer and never copied by value.
type OrderedList struct {
	nodeSize   uintptr
	size       int
	begin, end unsafe.Pointer

	// lastDeallocPrev/lastDealloc are a cursor remembering where the most
	// recent Deallocate landed, so that a subsequent Deallocate at or
	// after that address resumes the scan instead of restarting from
	// begin -- the common case when frees mirror allocation order.
	lastDeallocPrev, lastDealloc unsafe.Pointer
}

// NewOrderedList creates an empty list of nodes at least nodeSize bytes.
func NewOrderedList(nodeSize uintptr) *OrderedList {
	if nodeSize < MinNodeSize {
		nodeSize = MinNodeSize
	}
	begin := unsafe.Pointer(&xorNode{})
	end := unsafe.Pointer(&xorNode{})
	(*xorNode)(begin).xorPtr = uintptr(end)
	(*xorNode)(end).xorPtr = uintptr(begin)
	return &OrderedList{
		nodeSize:        nodeSize,
		begin:           begin,
		end:             end,
		lastDeallocPrev: begin,
		lastDealloc:     end,
	}
}

// NodeSize returns the fixed size of every node in the list.
func (l *OrderedList) NodeSize() uintptr { return l.nodeSize }

// Size returns the number of nodes currently on the list.
func (l *OrderedList) Size() int { return l.size }

// Empty reports whether the list currently holds no nodes.
func (l *OrderedList) Empty() bool { return nextOf(l.begin, nil) == l.end }

// locate returns (prevAddr, curAddr) such that prevAddr < ptr <= curAddr in
// address order; curAddr may be the end sentinel. It resumes from the
// lastDealloc cursor when ptr is at or after that cursor's address, and
// restarts from begin otherwise.
func (l *OrderedList) locate(ptr unsafe.Pointer) (prevAddr, curAddr unsafe.Pointer) {
	if l.lastDealloc != l.end && uintptr(l.lastDealloc) <= uintptr(ptr) {
		prevAddr, curAddr = l.lastDeallocPrev, l.lastDealloc
	} else {
		prevAddr = l.begin
		curAddr = nextOf(l.begin, nil)
	}
	for curAddr != l.end && uintptr(curAddr) < uintptr(ptr) {
		nc := nextOf(curAddr, prevAddr)
		prevAddr = curAddr
		curAddr = nc
	}
	return prevAddr, curAddr
}

func (l *OrderedList) insertBetween(prevAddr, curAddr, x unsafe.Pointer) {
	p := (*xorNode)(prevAddr)
	p.xorPtr ^= uintptr(curAddr) ^ uintptr(x)
	c := (*xorNode)(curAddr)
	c.xorPtr ^= uintptr(prevAddr) ^ uintptr(x)
	(*xorNode)(x).xorPtr = uintptr(prevAddr) ^ uintptr(curAddr)
}

func (l *OrderedList) removeAt(prevAddr, curAddr unsafe.Pointer) unsafe.Pointer {
	nextAddr := nextOf(curAddr, prevAddr)
	(*xorNode)(prevAddr).xorPtr ^= uintptr(curAddr) ^ uintptr(nextAddr)
	(*xorNode)(nextAddr).xorPtr ^= uintptr(curAddr) ^ uintptr(prevAddr)
	return curAddr
}

// cursorIn reports whether either cursor pointer falls inside the removed
// range [lo, hi]; both must be repositioned if so.
func (l *OrderedList) cursorIn(lo, hi unsafe.Pointer) bool {
	inRange := func(p unsafe.Pointer) bool {
		return p != l.begin && p != l.end &&
			uintptr(p) >= uintptr(lo) && uintptr(p) <= uintptr(hi)
	}
	return inRange(l.lastDealloc) || inRange(l.lastDeallocPrev)
}

// Deallocate inserts ptr (a single node) back into the list at the address
// position that keeps the list sorted. Inserting a node that is already on
// the list would corrupt the XOR chain; callers with double-free checking
// enabled must consult IsFree first.
func (l *OrderedList) Deallocate(ptr unsafe.Pointer) {
	prevAddr, curAddr := l.locate(ptr)
	l.insertBetween(prevAddr, curAddr, ptr)
	l.size++
	l.lastDeallocPrev, l.lastDealloc = prevAddr, ptr
}

// IsFree reports whether ptr is already on the list: the insertion walk
// found no gap at ptr's address because ptr itself occupies it. This is
// the double-free predicate for debug checks; same cost as locate.
func (l *OrderedList) IsFree(ptr unsafe.Pointer) bool {
	_, curAddr := l.locate(ptr)
	return curAddr == ptr
}

// Allocate removes and returns the lowest-address node on the list, or nil
// if the list is empty.
func (l *OrderedList) Allocate() unsafe.Pointer {
	first := nextOf(l.begin, nil)
	if first == l.end {
		return nil
	}
	removed := l.removeAt(l.begin, first)
	l.size--
	// Either cursor pointer going stale would corrupt a later splice.
	if l.lastDealloc == removed || l.lastDeallocPrev == removed {
		l.lastDeallocPrev = l.begin
		l.lastDealloc = nextOf(l.begin, nil)
	}
	return removed
}

// AllocateArray finds and removes the lowest-address run of n physically
// contiguous free nodes, returning the run's start, or nil if no such run
// exists.
func (l *OrderedList) AllocateArray(n int) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	prevAddr := l.begin
	curAddr := nextOf(l.begin, nil)
	for curAddr != l.end {
		runPrev := prevAddr
		p, c := prevAddr, curAddr
		ok := true
		for i := 1; i < n; i++ {
			nc := nextOf(c, p)
			if nc == l.end || uintptr(nc) != uintptr(c)+l.nodeSize {
				ok = false
				break
			}
			p, c = c, nc
		}
		if ok {
			runStart, runEnd := curAddr, c
			afterRun := nextOf(runEnd, p)
			(*xorNode)(runPrev).xorPtr ^= uintptr(runStart) ^ uintptr(afterRun)
			(*xorNode)(afterRun).xorPtr ^= uintptr(runEnd) ^ uintptr(runPrev)
			l.size -= n
			if l.cursorIn(runStart, runEnd) {
				l.lastDeallocPrev, l.lastDealloc = runPrev, afterRun
			}
			return runStart
		}
		nc := nextOf(curAddr, prevAddr)
		prevAddr = curAddr
		curAddr = nc
	}
	return nil
}

// DeallocateArray inserts a contiguous run of n nodes starting at ptr back
// into the list as a single splice.
func (l *OrderedList) DeallocateArray(ptr unsafe.Pointer, n int) {
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		addr := unsafe.Add(ptr, uintptr(i)*l.nodeSize)
		var prev, next unsafe.Pointer
		if i > 0 {
			prev = unsafe.Add(ptr, uintptr(i-1)*l.nodeSize)
		}
		if i < n-1 {
			next = unsafe.Add(ptr, uintptr(i+1)*l.nodeSize)
		}
		(*xorNode)(addr).xorPtr = uintptr(prev) ^ uintptr(next)
	}

	prevAddr, curAddr := l.locate(ptr)
	runStart := ptr
	runEnd := unsafe.Add(ptr, uintptr(n-1)*l.nodeSize)

	(*xorNode)(prevAddr).xorPtr ^= uintptr(curAddr) ^ uintptr(runStart)
	(*xorNode)(curAddr).xorPtr ^= uintptr(prevAddr) ^ uintptr(runEnd)
	(*xorNode)(runStart).xorPtr ^= uintptr(prevAddr)
	(*xorNode)(runEnd).xorPtr ^= uintptr(curAddr)

	l.size += n
	l.lastDeallocPrev, l.lastDealloc = prevAddr, runStart
}
