package arena

import "unsafe"

// blockStackNode is the implementation header every block gets when pushed
// onto a blockStack. It is rounded up to MaxAlignment so the user-visible
// region that follows starts aligned.
type blockStackNode struct {
	prev       *blockStackNode
	usableSize uintptr
}

// blockStackHeaderSize is the prefix every pushed block reserves, rounded
// up to the platform's maximum scalar alignment.
var blockStackHeaderSize = roundUp(unsafe.Sizeof(blockStackNode{}), MaxAlignment)

// MinBlockSize returns the smallest provider block size able to serve
// userBytes of payload, accounting for the per-block header. Providers
// configured with a smaller block size are rejected at push time.
func MinBlockSize(userBytes uintptr) uintptr { return blockStackHeaderSize + userBytes }

// blockStack owns an intrusive singly-linked list of blocks in allocation
// order. top() names the most recently pushed block; push and pop are
// O(1); owns is O(n).
type blockStack struct {
	head *blockStackNode
}

func (s *blockStack) empty() bool { return s.head == nil }

// push inserts a freshly provided block at the head of the stack. The
// block must be at least MinBlockSize(1) bytes, or there is no payload
// left past the header.
func (s *blockStack) push(b Block) {
	if b.Size <= blockStackHeaderSize {
		panic("arena: block smaller than MinBlockSize")
	}
	node := (*blockStackNode)(b.Memory)
	*node = blockStackNode{prev: s.head, usableSize: b.Size - blockStackHeaderSize}
	s.head = node
}

// pop removes the top block and returns it in its original, raw form (as
// it would have come from a BlockProvider).
func (s *blockStack) pop() Block {
	node := s.head
	s.head = node.prev
	return Block{Memory: unsafe.Pointer(node), Size: node.usableSize + blockStackHeaderSize}
}

// top returns the user-visible portion of the most recently pushed block:
// memory advanced past the header, and the usable (post-header) size.
func (s *blockStack) top() Block {
	return Block{Memory: unsafe.Add(unsafe.Pointer(s.head), blockStackHeaderSize), Size: s.head.usableSize}
}

// steal moves the top block of other onto the head of s, without touching
// the provider.
func (s *blockStack) steal(other *blockStack) {
	node := other.head
	other.head = node.prev
	node.prev = s.head
	s.head = node
}

// owns reports whether addr falls within any block currently on the
// stack. O(n) in the stack depth.
func (s *blockStack) owns(addr unsafe.Pointer) bool {
	for n := s.head; n != nil; n = n.prev {
		b := Block{Memory: unsafe.Pointer(n), Size: n.usableSize + blockStackHeaderSize}
		if b.Contains(addr) {
			return true
		}
	}
	return false
}

// size returns the number of blocks on the stack. O(n).
func (s *blockStack) size() int {
	n := 0
	for cur := s.head; cur != nil; cur = cur.prev {
		n++
	}
	return n
}

// capacity returns the sum of usable sizes of all blocks on the stack. O(n).
func (s *blockStack) capacity() uintptr {
	var total uintptr
	for cur := s.head; cur != nil; cur = cur.prev {
		total += cur.usableSize
	}
	return total
}
