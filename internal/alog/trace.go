//go:build arenadebug

package alog

import "github.com/timandy/routine"

// TraceEnabled reports whether the arenadebug build tag is active.
const TraceEnabled = true

// Trace prints a goroutine-tagged verbose line. It only exists in builds
// compiled with the arenadebug tag; normal builds compile it out entirely,
// along with every computation feeding it (see trace_off.go).
func Trace(operation string, args ...any) {
	current().Debug().
		Int64("goid", routine.Goid()).
		Str("op", operation).
		Interface("args", args).
		Log("trace")
}
