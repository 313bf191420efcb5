//go:build !allocctxdebug

package pseudostack

// DebugChecks reports whether nesting assertions are compiled in.
const DebugChecks = false

// overflow is a no-op in release builds; the frame is dropped.
func overflow(Frame) {}

// unbalanced is a no-op in release builds; the top frame is popped anyway.
func unbalanced(_, _ Frame) {}
