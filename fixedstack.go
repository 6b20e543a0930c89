package arena

import "unsafe"

// FixedStack is a bump pointer (cur, end) inside a single block. Allocation
// advances cur past an alignment pad, an optional front fence, the
// payload, and an optional back fence. unwind resets cur to a previously
// observed value.
type FixedStack struct {
	start unsafe.Pointer
	cur   unsafe.Pointer
	end   unsafe.Pointer
	debug DebugConfig
	info  AllocatorInfo
}

// NewFixedStack creates a FixedStack spanning block.
func NewFixedStack(block Block, opts ...ArenaOption) *FixedStack {
	cfg := arenaConfig{name: "arena.FixedStack"}
	for _, o := range opts {
		o(&cfg)
	}
	s := &FixedStack{start: block.Memory, cur: block.Memory, end: unsafe.Add(block.Memory, block.Size), debug: cfg.debug}
	s.info = AllocatorInfo{Name: cfg.name, Instance: unsafe.Pointer(s)}
	return s
}

// Top returns the current bump pointer.
func (s *FixedStack) Top() unsafe.Pointer { return s.cur }

// End returns the end of the stack's block.
func (s *FixedStack) End() unsafe.Pointer { return s.end }

// Remaining reports the number of bytes left before End.
func (s *FixedStack) Remaining() uintptr {
	return uintptr(s.end) - uintptr(s.cur)
}

// Allocate advances cur past an alignment pad, the configured front/back
// fence, and size bytes, returning the payload start. On overflow it
// returns nil without mutating cur.
func (s *FixedStack) Allocate(size, align uintptr) unsafe.Pointer {
	pad := alignOffset(s.cur, align)
	fence := s.debug.fenceSize()
	total := pad + fence + size + fence
	if total > s.Remaining() {
		return nil
	}

	start := s.cur
	debugFill(s.debug, start, pad, alignmentMemory)

	mem := unsafe.Add(start, pad)
	payload := debugFillNew(s.debug, mem, size)

	s.cur = unsafe.Add(mem, fence+size+fence)
	return payload
}

// Unwind resets cur to top, which must lie in [block start, cur]. The
// reclaimed range is filled with freedMemory.
func (s *FixedStack) Unwind(top unsafe.Pointer) {
	if uintptr(top) < uintptr(s.start) || uintptr(top) > uintptr(s.cur) {
		panic("arena: FixedStack.Unwind target outside [start, cur]")
	}
	debugFill(s.debug, top, uintptr(s.cur)-uintptr(top), freedMemory)
	s.cur = top
}
