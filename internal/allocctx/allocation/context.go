// Package allocation defines the immutable allocation context snapshot that
// is attached to every recorded heap allocation.
package allocation

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/kolkov/allocctx/internal/allocctx/fields"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
)

// Context is a point-in-time copy of a tracker's pseudo-stack and context
// overlay.
//
// Frames are stored top first. Fields are stored sorted by key. A Context
// never references the tracker it was taken from, and its backing arrays
// are never written after New returns, so copying a Context by value is
// cheap and safe. The zero value is an empty context.
type Context struct {
	frames    []pseudostack.Frame
	fields    []fields.Field
	fullDepth int
}

// New builds a Context from frames in top-to-bottom order and overlay
// entries in any order. New takes ownership of both slices; callers must not
// modify them afterwards.
//
// fullDepth is the depth of the stack the frames were copied from. It is
// larger than len(frames) when only a prefix was kept.
func New(frames []pseudostack.Frame, fs []fields.Field, fullDepth int) Context {
	if len(frames) == 0 {
		frames = nil
	}
	if len(fs) == 0 {
		fs = nil
	}
	if len(fs) > 1 {
		slices.SortFunc(fs, func(a, b fields.Field) int {
			return cmp.Compare(a.Key, b.Key)
		})
	}
	if fullDepth < len(frames) {
		fullDepth = len(frames)
	}
	return Context{frames: frames, fields: fs, fullDepth: fullDepth}
}

// Depth returns the number of frames held by the context.
func (c Context) Depth() int {
	return len(c.frames)
}

// Truncated reports whether the context holds only the top part of the
// pseudo-stack it was taken from.
func (c Context) Truncated() bool {
	return c.fullDepth > len(c.frames)
}

// Frame returns the i-th frame counted from the top (0 is the most recent).
// It panics if i is out of range.
func (c Context) Frame(i int) pseudostack.Frame {
	return c.frames[i]
}

// Top returns a traversal from the most recent frame to the oldest one.
func (c Context) Top() iter.Seq[pseudostack.Frame] {
	return slices.Values(c.frames)
}

// Bottom returns a traversal from the oldest frame to the most recent one.
func (c Context) Bottom() iter.Seq[pseudostack.Frame] {
	return func(yield func(pseudostack.Frame) bool) {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if !yield(c.frames[i]) {
				return
			}
		}
	}
}

// Backtrace returns a copy of the frames, top first.
func (c Context) Backtrace() []pseudostack.Frame {
	return slices.Clone(c.frames)
}

// NumFields returns the number of overlay entries.
func (c Context) NumFields() int {
	return len(c.fields)
}

// Field returns the value recorded for key.
func (c Context) Field(key string) (string, bool) {
	i, ok := slices.BinarySearchFunc(c.fields, key, func(f fields.Field, k string) int {
		return cmp.Compare(f.Key, k)
	})
	if !ok {
		return "", false
	}
	return c.fields[i].Value, true
}

// Fields returns a copy of the overlay entries sorted by key.
func (c Context) Fields() []fields.Field {
	return slices.Clone(c.fields)
}

// IsEmpty reports whether the context has neither frames nor fields.
func (c Context) IsEmpty() bool {
	return len(c.frames) == 0 && len(c.fields) == 0
}

// String formats the context as "bottom > ... > top {k=v, ...}".
func (c Context) String() string {
	var b strings.Builder
	if len(c.frames) == 0 {
		b.WriteString("<empty>")
	}
	if c.Truncated() {
		b.WriteString("... > ")
	}
	first := true
	for f := range c.Bottom() {
		if !first {
			b.WriteString(" > ")
		}
		b.WriteString(string(f))
		first = false
	}
	if len(c.fields) > 0 {
		b.WriteString(" {")
		for i, f := range c.fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Key)
			b.WriteByte('=')
			b.WriteString(f.Value)
		}
		b.WriteByte('}')
	}
	return b.String()
}
