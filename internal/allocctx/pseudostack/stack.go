package pseudostack

import (
	"errors"
	"iter"
)

// MaxDepth is the maximum number of frames a Stack holds.
//
// In practice the pseudo-stack never grows beyond ~20 frames. The ceiling
// exists to catch pushes that are never popped.
const MaxDepth = 128

var (
	// ErrOverflow is wrapped by the debug-build panic raised when a push
	// would exceed MaxDepth.
	ErrOverflow = errors.New("pseudostack: max depth exceeded")

	// ErrUnbalancedPop is wrapped by the debug-build panic raised when
	// PopExpect finds a different frame on top of the stack.
	ErrUnbalancedPop = errors.New("pseudostack: unbalanced pop")
)

// Frame identifies one traced scope, typically a static string naming it.
//
// Frames are compared by value. The stack stores the identifier supplied by
// the call site and never copies or owns anything behind it.
type Frame string

// Stack is a bounded LIFO of frames.
//
// The zero value is an empty stack ready for use. A Stack is owned by a
// single goroutine and is not safe for concurrent use.
type Stack struct {
	frames [MaxDepth]Frame
	depth  int
}

// Push appends frame on top of the stack.
//
// Pushing onto a full stack panics in debug builds and is ignored otherwise.
func (s *Stack) Push(frame Frame) {
	if s.depth >= MaxDepth {
		overflow(frame)
		return
	}
	s.frames[s.depth] = frame
	s.depth++
}

// Pop removes the top frame. Popping an empty stack is a no-op.
func (s *Stack) Pop() {
	if s.depth == 0 {
		return
	}
	s.depth--
	s.frames[s.depth] = ""
}

// PopExpect removes the top frame, which the caller expects to be frame.
//
// The stack is not searched: the top is always removed. Debug builds panic
// when the top differs from frame. Popping an empty stack is a no-op in
// every build.
func (s *Stack) PopExpect(frame Frame) {
	if s.depth == 0 {
		return
	}
	if top := s.frames[s.depth-1]; top != frame {
		unbalanced(frame, top)
	}
	s.Pop()
}

// Len returns the number of frames on the stack.
func (s *Stack) Len() int {
	return s.depth
}

// Peek returns the top frame, or false if the stack is empty.
func (s *Stack) Peek() (Frame, bool) {
	if s.depth == 0 {
		return "", false
	}
	return s.frames[s.depth-1], true
}

// Top returns a traversal from the most recently pushed frame down to the
// oldest one.
//
// The sequence reads the stack lazily each time it is ranged over, so it
// can be restarted and stopped early. Mutating the stack during a traversal
// is not supported.
func (s *Stack) Top() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for i := s.depth - 1; i >= 0; i-- {
			if !yield(s.frames[i]) {
				return
			}
		}
	}
}

// Bottom returns a traversal from the oldest frame up to the most recently
// pushed one. It has the same properties as Top.
func (s *Stack) Bottom() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for i := 0; i < s.depth; i++ {
			if !yield(s.frames[i]) {
				return
			}
		}
	}
}

// AppendTop appends at most limit frames to dst in top-to-bottom order and
// returns the extended slice. A limit <= 0 appends every frame.
func (s *Stack) AppendTop(dst []Frame, limit int) []Frame {
	n := s.depth
	if limit > 0 && limit < n {
		n = limit
	}
	for i := s.depth - 1; i >= s.depth-n; i-- {
		dst = append(dst, s.frames[i])
	}
	return dst
}

// Reset empties the stack.
func (s *Stack) Reset() {
	clear(s.frames[:s.depth])
	s.depth = 0
}
