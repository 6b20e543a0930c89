package providers

import (
	"unsafe"

	"github.com/memkit/arena"
)

// Static is an arena.BlockProvider carved out of one caller-supplied
// buffer; blocks are taken from it in order on demand, and block memory
// never comes from the Go allocator. Once that buffer is exhausted, AllocateBlock fails with
// *arena.OutOfFixedMemoryError: there is nowhere left to grow.
type Static struct {
	buf       []byte
	blockSize uintptr
	offset    uintptr
	free      []uintptr // offsets of previously returned, now-freed blocks
	info      arena.AllocatorInfo
}

// NewStatic partitions buf into blocks of blockSize bytes. len(buf) need
// not be an exact multiple of blockSize; any remainder is unusable.
func NewStatic(buf []byte, blockSize uintptr) *Static {
	s := &Static{buf: buf, blockSize: blockSize}
	s.info = arena.AllocatorInfo{Name: "providers.Static", Instance: unsafe.Pointer(s)}
	return s
}

// AllocateBlock returns the next never-used region of the backing buffer,
// or the most recently freed block if one is available, or fails with
// *arena.OutOfFixedMemoryError once the buffer is exhausted and nothing
// has been freed.
func (s *Static) AllocateBlock() (arena.Block, error) {
	if n := len(s.free); n > 0 {
		off := s.free[n-1]
		s.free = s.free[:n-1]
		return s.blockAt(off), nil
	}
	if s.offset+s.blockSize > uintptr(len(s.buf)) {
		return arena.Block{}, &arena.OutOfFixedMemoryError{
			OutOfMemoryError: arena.OutOfMemoryError{Info: s.info, Amount: s.blockSize},
		}
	}
	off := s.offset
	s.offset += s.blockSize
	return s.blockAt(off), nil
}

func (s *Static) blockAt(offset uintptr) arena.Block {
	return arena.Block{Memory: unsafe.Pointer(&s.buf[offset]), Size: s.blockSize}
}

// DeallocateBlock marks the block's offset as reusable by a later
// AllocateBlock call.
func (s *Static) DeallocateBlock(b arena.Block) {
	off := uintptr(b.Memory) - uintptr(unsafe.Pointer(&s.buf[0]))
	s.free = append(s.free, off)
}

// NextBlockSize always reports the provider's fixed block size.
func (s *Static) NextBlockSize() uintptr { return s.blockSize }
