package adapters

import (
	"unsafe"

	"github.com/memkit/arena"
)

var _ arena.ComposableAllocator = (*StackView)(nil)

// StackView adapts an *arena.GrowingStack to the arena.RawAllocator
// contract. A stack has no per-allocation deallocate: memory comes back
// only by unwinding to a marker, so DeallocateNode/DeallocateArray are
// deliberate no-ops and callers reclaim through the stack itself. Array
// allocation is the trait-layer node fallback, since a bump allocation of
// count*size bytes is already contiguous by construction.
type StackView struct {
	stack *arena.GrowingStack
}

// NewStackView wraps stack.
func NewStackView(stack *arena.GrowingStack) *StackView {
	return &StackView{stack: stack}
}

// Stack exposes the wrapped stack, e.g. for Top/Unwind.
func (v *StackView) Stack() *arena.GrowingStack { return v.stack }

func (v *StackView) AllocateNode(size, align uintptr) (unsafe.Pointer, error) {
	if align > arena.MaxAlignment {
		return nil, &arena.BadAllocationSizeError{Kind: arena.BadAlignment, Passed: align, Supported: arena.MaxAlignment}
	}
	return v.stack.Allocate(size, align)
}

func (v *StackView) AllocateArray(count, size, align uintptr) (unsafe.Pointer, error) {
	return arena.AllocateArrayViaNode(v, count, size, align)
}

// DeallocateNode is a no-op: stack memory is reclaimed by unwinding.
func (v *StackView) DeallocateNode(ptr unsafe.Pointer, size, align uintptr) {}

// DeallocateArray is a no-op: stack memory is reclaimed by unwinding.
func (v *StackView) DeallocateArray(ptr unsafe.Pointer, count, size, align uintptr) {}

// MaxNodeSize reports the largest single allocation the stack could serve
// from a fresh block.
func (v *StackView) MaxNodeSize() uintptr { return v.stack.Arena().NextBlockSize() }

// MaxArraySize matches MaxNodeSize: arrays are single bump allocations.
func (v *StackView) MaxArraySize() uintptr { return v.stack.Arena().NextBlockSize() }

// MaxAlignment reports the platform's maximum scalar alignment, the bound
// every provider block is aligned to.
func (v *StackView) MaxAlignment() uintptr { return arena.MaxAlignment }

// TryAllocateNode is AllocateNode without an error return, for fallback
// chains (arena.ComposableAllocator).
func (v *StackView) TryAllocateNode(size, align uintptr) (unsafe.Pointer, bool) {
	ptr, err := v.AllocateNode(size, align)
	return ptr, err == nil
}

// TryAllocateArray is AllocateArray without an error return.
func (v *StackView) TryAllocateArray(count, size, align uintptr) (unsafe.Pointer, bool) {
	ptr, err := v.AllocateArray(count, size, align)
	return ptr, err == nil
}
