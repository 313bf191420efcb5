package pseudostack

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStackPushPop tests basic LIFO behavior.
func TestStackPushPop(t *testing.T) {
	var s Stack

	s.Push("A")
	s.Push("B")
	s.Push("C")

	require.Equal(t, 3, s.Len())
	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, Frame("C"), top)

	s.Pop()
	top, _ = s.Peek()
	assert.Equal(t, Frame("B"), top)
	assert.Equal(t, 2, s.Len())
}

// TestStackPopEmpty verifies that popping an empty stack is a no-op.
func TestStackPopEmpty(t *testing.T) {
	var s Stack

	s.Pop()
	s.PopExpect("missing")
	assert.Equal(t, 0, s.Len())

	_, ok := s.Peek()
	assert.False(t, ok)

	// The stack must stay usable after unmatched pops.
	s.Push("A")
	s.Pop()
	s.Pop()
	s.Push("B")
	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, Frame("B"), top)
	assert.Equal(t, 1, s.Len())
}

// TestStackTraversalOrder tests Top and Bottom traversal order.
func TestStackTraversalOrder(t *testing.T) {
	var s Stack
	for _, f := range []Frame{"A", "B", "C"} {
		s.Push(f)
	}

	assert.Equal(t, []Frame{"C", "B", "A"}, slices.Collect(s.Top()))
	assert.Equal(t, []Frame{"A", "B", "C"}, slices.Collect(s.Bottom()))

	// Traversals are restartable and do not consume the stack.
	assert.Equal(t, []Frame{"C", "B", "A"}, slices.Collect(s.Top()))
	assert.Equal(t, 3, s.Len())
}

// TestStackTraversalEarlyStop verifies that a traversal can yield a prefix only.
func TestStackTraversalEarlyStop(t *testing.T) {
	var s Stack
	for i := 0; i < 10; i++ {
		s.Push(Frame(fmt.Sprintf("f%d", i)))
	}

	var got []Frame
	for f := range s.Top() {
		got = append(got, f)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []Frame{"f9", "f8"}, got)
	assert.Equal(t, 10, s.Len())
}

// TestStackTraversalEmpty verifies that an empty stack yields nothing.
func TestStackTraversalEmpty(t *testing.T) {
	var s Stack
	assert.Empty(t, slices.Collect(s.Top()))
	assert.Empty(t, slices.Collect(s.Bottom()))
}

// TestStackAppendTop tests bounded prefix copies.
func TestStackAppendTop(t *testing.T) {
	var s Stack
	for _, f := range []Frame{"A", "B", "C", "D"} {
		s.Push(f)
	}

	tests := []struct {
		name  string
		limit int
		want  []Frame
	}{
		{"unbounded", 0, []Frame{"D", "C", "B", "A"}},
		{"negative", -1, []Frame{"D", "C", "B", "A"}},
		{"prefix", 2, []Frame{"D", "C"}},
		{"exact", 4, []Frame{"D", "C", "B", "A"}},
		{"larger than depth", 50, []Frame{"D", "C", "B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.AppendTop(nil, tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}

	// Appending keeps the existing contents of dst.
	got := s.AppendTop([]Frame{"x"}, 1)
	assert.Equal(t, []Frame{"x", "D"}, got)
}

// TestStackFillToCapacity verifies that exactly MaxDepth pushes succeed.
func TestStackFillToCapacity(t *testing.T) {
	var s Stack
	for i := 0; i < MaxDepth; i++ {
		s.Push(Frame(fmt.Sprintf("f%d", i)))
	}
	require.Equal(t, MaxDepth, s.Len())

	top, _ := s.Peek()
	assert.Equal(t, Frame(fmt.Sprintf("f%d", MaxDepth-1)), top)
}

// TestStackReset tests that Reset empties the stack.
func TestStackReset(t *testing.T) {
	var s Stack
	s.Push("A")
	s.Push("B")
	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, slices.Collect(s.Top()))
}

// TestStackInterleavedModel checks random push/pop sequences against a
// slice-based model: size is pushes minus pops clamped at zero and the top
// is always the latest frame not yet popped.
func TestStackInterleavedModel(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		var s Stack
		var model []Frame

		for op := 0; op < 300; op++ {
			if rng.IntN(3) > 0 && len(model) < MaxDepth {
				f := Frame(fmt.Sprintf("r%d-op%d", round, op))
				s.Push(f)
				model = append(model, f)
			} else {
				s.Pop()
				if len(model) > 0 {
					model = model[:len(model)-1]
				}
			}

			require.Equal(t, len(model), s.Len(), "round %d op %d", round, op)
			if len(model) > 0 {
				top, ok := s.Peek()
				require.True(t, ok)
				require.Equal(t, model[len(model)-1], top)
			}
		}

		assert.Equal(t, model, slices.Collect(s.Bottom()))
	}
}

// TestStackPopDoesNotSearch verifies that PopExpect always removes the top,
// even when the expected frame sits deeper in the stack.
func TestStackPopDoesNotSearch(t *testing.T) {
	if DebugChecks {
		t.Skip("debug builds assert on unbalanced pops")
	}

	var s Stack
	s.Push("A")
	s.Push("B")

	s.PopExpect("A")
	assert.Equal(t, []Frame{"A"}, slices.Collect(s.Top()))
}

// BenchmarkStackPushPop measures the cost of a traced scope entry and exit.
func BenchmarkStackPushPop(b *testing.B) {
	var s Stack
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Push("bench")
		s.PopExpect("bench")
	}
}
