package adapters

import (
	"sync"
	"unsafe"

	"github.com/memkit/arena"
)

// Safe wraps any arena.RawAllocator with a mutex: every core allocator in
// this module is single-threaded by design, and Safe is the generic
// opt-in decorator for sharing one across goroutines.
type Safe struct {
	mu    sync.Mutex
	inner arena.RawAllocator
}

// NewSafe wraps inner with a mutex.
func NewSafe(inner arena.RawAllocator) *Safe {
	return &Safe{inner: inner}
}

func (s *Safe) AllocateNode(size, align uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.AllocateNode(size, align)
}

func (s *Safe) AllocateArray(count, size, align uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.AllocateArray(count, size, align)
}

func (s *Safe) DeallocateNode(ptr unsafe.Pointer, size, align uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.DeallocateNode(ptr, size, align)
}

func (s *Safe) DeallocateArray(ptr unsafe.Pointer, count, size, align uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.DeallocateArray(ptr, count, size, align)
}

func (s *Safe) MaxNodeSize() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.MaxNodeSize()
}

func (s *Safe) MaxArraySize() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.MaxArraySize()
}

func (s *Safe) MaxAlignment() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.MaxAlignment()
}
