package arena

import "unsafe"

// Alloc returns a pointer to a zeroed T allocated from the stack. The
// returned pointer is valid until the stack is unwound past it.
func Alloc[T any](s *GrowingStack) (*T, error) {
	ptr, err := AllocUninitialized[T](s)
	if err != nil {
		return nil, err
	}
	var zero T
	*ptr = zero
	return ptr, nil
}

// AllocUninitialized returns a *T allocated from the stack without zeroing
// it first. With debug fill enabled the memory holds the new-memory magic
// pattern; otherwise its contents are undefined.
func AllocUninitialized[T any](s *GrowingStack) (*T, error) {
	var zero T
	p, err := s.Allocate(unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// AllocSlice allocates a slice of n zeroed elements of type T from the
// stack. Returns nil (and no error) if n <= 0.
func AllocSlice[T any](s *GrowingStack, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	p, err := s.Allocate(uintptr(n)*unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return nil, err
	}
	out := unsafe.Slice((*T)(p), n)
	clear(out)
	return out, nil
}

// TypedPool couples a Pool with a concrete element type, so callers get
// and put *T instead of raw pointers sized by hand.
type TypedPool[T any] struct {
	pool *Pool
}

// NewTypedPool creates a pool whose node size and kind fit T: the chunked
// small-object flavour for small elements, the intrusive list otherwise.
func NewTypedPool[T any](provider BlockProvider, opts ...ArenaOption) *TypedPool[T] {
	var zero T
	size := unsafe.Sizeof(zero)
	kind := NodePool
	if size < 256 {
		kind = SmallNodePool
	}
	return &TypedPool[T]{pool: NewPool(kind, size, provider, opts...)}
}

// Get returns a zeroed *T from the pool.
func (tp *TypedPool[T]) Get() (*T, error) {
	p, err := tp.pool.AllocateNode()
	if err != nil {
		return nil, err
	}
	ptr := (*T)(p)
	var zero T
	*ptr = zero
	return ptr, nil
}

// Put returns ptr to the pool for reuse.
func (tp *TypedPool[T]) Put(ptr *T) {
	tp.pool.DeallocateNode(unsafe.Pointer(ptr))
}

// Pool exposes the underlying pool, e.g. for Reserve or Release.
func (tp *TypedPool[T]) Pool() *Pool { return tp.pool }
