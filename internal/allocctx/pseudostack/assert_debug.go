//go:build allocctxdebug

package pseudostack

import "fmt"

// DebugChecks reports whether nesting assertions are compiled in.
const DebugChecks = true

func overflow(frame Frame) {
	panic(fmt.Errorf("%w: push of %q at depth %d", ErrOverflow, frame, MaxDepth))
}

func unbalanced(want, got Frame) {
	panic(fmt.Errorf("%w: expected %q on top, found %q", ErrUnbalancedPop, want, got))
}
