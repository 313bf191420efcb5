package tracker

import (
	"github.com/kolkov/allocctx/internal/allocctx/allocation"
	"github.com/kolkov/allocctx/internal/allocctx/fields"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
)

// Tracker is the allocation context state of a single goroutine.
//
// Layout:
//   - GID: ID of the owning goroutine
//   - Seq: creation sequence number, used by the registry sweep to skip
//     trackers created after it took its snapshot of live goroutines
//   - stack: pseudo-stack of trace frames
//   - overlay: key/value context
//
// A Tracker must not be copied after first use.
type Tracker struct {
	// GID is the goroutine ID of the owner.
	GID int64

	// Seq is the creation sequence number assigned by the registry.
	Seq uint64

	stack   pseudostack.Stack
	overlay fields.Overlay
}

// New creates an empty tracker for goroutine gid.
//
// Example:
//
//	t := New(42, 1)
//	// t.GID = 42, empty pseudo-stack, empty overlay
func New(gid int64, seq uint64) *Tracker {
	return &Tracker{GID: gid, Seq: seq}
}

// PushFrame pushes frame onto the pseudo-stack.
func (t *Tracker) PushFrame(frame pseudostack.Frame) {
	t.stack.Push(frame)
}

// PopFrame pops the top frame, which is expected to be frame.
//
// The expected frame only feeds the debug-build nesting assertion; the top
// frame is always removed. Popping an empty stack is a no-op.
func (t *Tracker) PopFrame(frame pseudostack.Frame) {
	t.stack.PopExpect(frame)
}

// SetField sets a context field, replacing any previous value for key.
func (t *Tracker) SetField(key, value string) {
	t.overlay.Set(key, value)
}

// UnsetField removes a context field. Removing an absent key is a no-op.
func (t *Tracker) UnsetField(key string) {
	t.overlay.Unset(key)
}

// Snapshot returns an immutable copy of the current state.
//
// At most maxDepth frames are copied, starting from the top; maxDepth <= 0
// copies the whole stack. The tracker is not modified, and later changes to
// it do not affect the returned context.
//
// Example:
//
//	t.PushFrame("A")
//	t.PushFrame("B")
//	t.SetField("role", "worker")
//	ctx := t.Snapshot(0)
//	// ctx frames (top first): B, A; ctx.Field("role") = "worker"
func (t *Tracker) Snapshot(maxDepth int) allocation.Context {
	depth := t.stack.Len()
	var frames []pseudostack.Frame
	if depth > 0 {
		n := depth
		if maxDepth > 0 && maxDepth < n {
			n = maxDepth
		}
		frames = t.stack.AppendTop(make([]pseudostack.Frame, 0, n), n)
	}

	var fs []fields.Field
	if t.overlay.Len() > 0 {
		fs = t.overlay.AppendTo(make([]fields.Field, 0, t.overlay.Len()))
	}

	return allocation.New(frames, fs, depth)
}

// PseudoStack returns the raw pseudo-stack for inspection in tests.
func (t *Tracker) PseudoStack() *pseudostack.Stack {
	return &t.stack
}

// Depth returns the current pseudo-stack depth.
func (t *Tracker) Depth() int {
	return t.stack.Len()
}

// NumFields returns the number of context fields currently set.
func (t *Tracker) NumFields() int {
	return t.overlay.Len()
}

// Release drops all state held by the tracker.
func (t *Tracker) Release() {
	t.stack.Reset()
	t.overlay.Reset()
}
