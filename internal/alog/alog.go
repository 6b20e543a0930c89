// Package alog is the structured-logging backbone used by the debug and
// error handlers in the parent package. It exists so that the default
// handlers described by the core (leak, invalid-pointer, buffer-overflow,
// out-of-memory, bad-allocation-size) have somewhere sane to write to
// without every package that registers a handler needing to know about the
// logging stack directly.
package alog

import (
	"io"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var (
	mu     sync.Mutex
	logger = stumpy.L.New(stumpy.L.WithStumpy())
)

// SetWriter redirects all subsequent log output; nil restores the default
// (stderr). Tests use this to capture handler output instead of polluting
// stderr.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		logger = stumpy.L.New(stumpy.L.WithStumpy())
		return
	}
	logger = stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w)))
}

func current() *logiface.Logger[*stumpy.Event] {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Leak logs a non-zero end-of-life residual reported by a leak handler.
func Leak(name string, instance uintptr, amount int64) {
	current().Warning().
		Str("allocator", name).
		Uint64("instance", uint64(instance)).
		Int64("amount", amount).
		Log("memory leak detected")
}

// InvalidPointer logs a deallocation call that received an unaccountable
// pointer.
func InvalidPointer(name string, instance uintptr, ptr uintptr) {
	current().Err().
		Str("allocator", name).
		Uint64("instance", uint64(instance)).
		Uint64("pointer", uint64(ptr)).
		Log("invalid pointer passed to deallocate")
}

// BufferOverflow logs fence-byte corruption detected on deallocation.
func BufferOverflow(blockAddr uintptr, blockSize uint64, badPtr uintptr) {
	current().Err().
		Uint64("block", uint64(blockAddr)).
		Uint64("block_size", blockSize).
		Uint64("pointer", uint64(badPtr)).
		Log("buffer overflow detected")
}

// OutOfMemory logs the default out-of-memory handler's report.
func OutOfMemory(name string, instance uintptr, amount uint64) {
	current().Err().
		Str("allocator", name).
		Uint64("instance", uint64(instance)).
		Uint64("amount", amount).
		Log("out of memory")
}

// BadAllocationSize logs the default bad-size handler's report.
func BadAllocationSize(name string, instance uintptr, passed, supported uint64) {
	current().Err().
		Str("allocator", name).
		Uint64("instance", uint64(instance)).
		Uint64("passed", passed).
		Uint64("supported", supported).
		Log("bad allocation size")
}
