// Package fields implements the per-goroutine key/value context overlay
// attached to allocation contexts.
//
// An overlay usually holds a handful of entries (a component name, a role,
// a request kind). Entries live in a small inline array and only spill to
// the heap when more than InlineCapacity keys are set at once, so the common
// case never allocates.
package fields

import "iter"

// InlineCapacity is the number of entries stored without heap allocation.
const InlineCapacity = 8

// Field is one key/value pair of the overlay.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Overlay maps keys to values with last-write-wins semantics.
//
// Iteration order is unspecified. The zero value is an empty overlay ready
// for use. An Overlay must not be copied after first use because its entry
// slice may point into its own inline storage. It is owned by a single
// goroutine and is not safe for concurrent use.
type Overlay struct {
	inline  [InlineCapacity]Field
	entries []Field
}

// Set stores value under key, replacing any previous value.
func (o *Overlay) Set(key, value string) {
	if i := o.index(key); i >= 0 {
		o.entries[i].Value = value
		return
	}
	if o.entries == nil {
		o.entries = o.inline[:0]
	}
	o.entries = append(o.entries, Field{Key: key, Value: value})
}

// Unset removes key and reports whether it was present.
// Removing an absent key is a no-op.
func (o *Overlay) Unset(key string) bool {
	i := o.index(key)
	if i < 0 {
		return false
	}
	last := len(o.entries) - 1
	o.entries[i] = o.entries[last]
	o.entries[last] = Field{}
	o.entries = o.entries[:last]
	return true
}

// Get returns the value stored under key.
func (o *Overlay) Get(key string) (string, bool) {
	if i := o.index(key); i >= 0 {
		return o.entries[i].Value, true
	}
	return "", false
}

// Len returns the number of entries.
func (o *Overlay) Len() int {
	return len(o.entries)
}

// All returns a traversal over every key/value pair.
func (o *Overlay) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, f := range o.entries {
			if !yield(f.Key, f.Value) {
				return
			}
		}
	}
}

// AppendTo appends a copy of every entry to dst and returns the extended
// slice.
func (o *Overlay) AppendTo(dst []Field) []Field {
	return append(dst, o.entries...)
}

// Reset removes every entry and returns to inline storage.
func (o *Overlay) Reset() {
	clear(o.entries)
	clear(o.inline[:])
	o.entries = nil
}

func (o *Overlay) index(key string) int {
	for i := range o.entries {
		if o.entries[i].Key == key {
			return i
		}
	}
	return -1
}
