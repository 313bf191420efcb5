// Package pseudostack implements the bounded pseudo-stack of trace frames
// kept by every allocation context tracker.
//
// A pseudo-stack approximates the logical call stack of a goroutine from
// explicit push/pop instrumentation at traced scope boundaries, rather than
// from unwinding the real call stack. Push and pop sit on every traced scope
// entry and exit, so both are plain array writes on a fixed backing store:
//   - Push: O(1), zero allocations
//   - Pop:  O(1), zero allocations, no-op on an empty stack
//
// The stack never holds more than MaxDepth frames. Exceeding the ceiling
// means a push without a matching pop somewhere in the instrumentation. In
// builds tagged allocctxdebug this panics with an error wrapping ErrOverflow;
// in regular builds the extra frame is dropped.
package pseudostack
