package arena

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/memkit/arena/internal/alog"
)

// AllocatorInfo carries a human-readable allocator name and an opaque
// instance pointer, used for logging and for equality between two
// allocator_info-style values. It is attached to every error and to every
// debug-handler invocation.
type AllocatorInfo struct {
	Name     string
	Instance unsafe.Pointer
}

func (i AllocatorInfo) instanceAddr() uintptr { return uintptr(i.Instance) }

// OutOfMemoryError is returned when an elastic block provider refuses to
// grow further.
type OutOfMemoryError struct {
	Info   AllocatorInfo
	Amount uintptr
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("%s: out of memory requesting %d bytes", e.Info.Name, e.Amount)
}

// OutOfFixedMemoryError is the special case of OutOfMemoryError raised by a
// block provider with a hard, fixed capacity (e.g. a static buffer or an
// iteration stack, which never grows).
type OutOfFixedMemoryError struct {
	OutOfMemoryError
}

func (e *OutOfFixedMemoryError) Error() string {
	return fmt.Sprintf("%s: fixed-capacity provider exhausted requesting %d bytes", e.Info.Name, e.Amount)
}

// Unwrap exposes the embedded OutOfMemoryError, so errors.As also matches
// an *OutOfFixedMemoryError as an *OutOfMemoryError.
func (e *OutOfFixedMemoryError) Unwrap() error { return &e.OutOfMemoryError }

// SizeKind distinguishes the three ways a BadAllocationSizeError can arise.
type SizeKind int

const (
	// BadNodeSize means a single allocation's size exceeded MaxNodeSize.
	BadNodeSize SizeKind = iota
	// BadArraySize means count*size for an array allocation exceeded MaxArraySize.
	BadArraySize
	// BadAlignment means the requested alignment exceeded MaxAlignment or
	// was not a power of two.
	BadAlignment
)

func (k SizeKind) String() string {
	switch k {
	case BadNodeSize:
		return "bad node size"
	case BadArraySize:
		return "bad array size"
	case BadAlignment:
		return "bad alignment"
	default:
		return "bad allocation size"
	}
}

// BadAllocationSizeError is raised before any state is touched, whenever a
// caller's node/array/alignment parameter exceeds the allocator's declared
// bound.
type BadAllocationSizeError struct {
	Info      AllocatorInfo
	Kind      SizeKind
	Passed    uintptr
	Supported uintptr
}

func (e *BadAllocationSizeError) Error() string {
	return fmt.Sprintf("%s: %s: passed %d, supported up to %d", e.Info.Name, e.Kind, e.Passed, e.Supported)
}

// --- global, swappable, atomic handler tables ---
//
// These two handlers plus the three debug handlers in debug.go are the
// only shared mutable state the core touches. The out-of-memory handler
// serves both out-of-memory error types and the bad-allocation-size
// handler serves all three SizeKinds; there is no separate slot per kind.
// Every handler slot is an atomic.Pointer so that SetXHandler has exchange
// (swap-returns-old) semantics.

// OutOfMemoryHandler is invoked before an *OutOfMemoryError /
// *OutOfFixedMemoryError is raised. The default handler logs to the
// module's structured logger and returns, letting the error propagate.
type OutOfMemoryHandler func(info AllocatorInfo, amount uintptr)

// BadAllocationSizeHandler is invoked before a *BadAllocationSizeError is
// raised.
type BadAllocationSizeHandler func(info AllocatorInfo, kind SizeKind, passed, supported uintptr)

var (
	outOfMemoryHandler       atomic.Pointer[OutOfMemoryHandler]
	badAllocationSizeHandler atomic.Pointer[BadAllocationSizeHandler]
)

func init() {
	var oom OutOfMemoryHandler = defaultOutOfMemoryHandler
	outOfMemoryHandler.Store(&oom)
	var bad BadAllocationSizeHandler = defaultBadAllocationSizeHandler
	badAllocationSizeHandler.Store(&bad)
}

func defaultOutOfMemoryHandler(info AllocatorInfo, amount uintptr) {
	alog.OutOfMemory(info.Name, info.instanceAddr(), uint64(amount))
}

func defaultBadAllocationSizeHandler(info AllocatorInfo, kind SizeKind, passed, supported uintptr) {
	alog.BadAllocationSize(info.Name, info.instanceAddr(), uint64(passed), uint64(supported))
}

// SetOutOfMemoryHandler exchanges the global out-of-memory handler and
// returns the previous one. Passing nil restores the default.
func SetOutOfMemoryHandler(h OutOfMemoryHandler) (previous OutOfMemoryHandler) {
	if h == nil {
		h = defaultOutOfMemoryHandler
	}
	old := outOfMemoryHandler.Swap(&h)
	return *old
}

// SetBadAllocationSizeHandler exchanges the global bad-allocation-size
// handler and returns the previous one. Passing nil restores the default.
func SetBadAllocationSizeHandler(h BadAllocationSizeHandler) (previous BadAllocationSizeHandler) {
	if h == nil {
		h = defaultBadAllocationSizeHandler
	}
	old := badAllocationSizeHandler.Swap(&h)
	return *old
}

func reportOutOfMemory(info AllocatorInfo, amount uintptr) error {
	(*outOfMemoryHandler.Load())(info, amount)
	return &OutOfMemoryError{Info: info, Amount: amount}
}

func reportOutOfFixedMemory(info AllocatorInfo, amount uintptr) error {
	(*outOfMemoryHandler.Load())(info, amount)
	return &OutOfFixedMemoryError{OutOfMemoryError{Info: info, Amount: amount}}
}

func reportBadAllocationSize(info AllocatorInfo, kind SizeKind, passed, supported uintptr) error {
	(*badAllocationSizeHandler.Load())(info, kind, passed, supported)
	return &BadAllocationSizeError{Info: info, Kind: kind, Passed: passed, Supported: supported}
}
