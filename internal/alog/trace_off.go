//go:build !arenadebug

package alog

// TraceEnabled reports whether the arenadebug build tag is active.
const TraceEnabled = false

// Trace is a no-op outside of arenadebug builds.
func Trace(operation string, args ...any) {}
