// Package tracker implements the per-goroutine allocation context tracker.
//
// A Tracker holds the state the heap profiler attributes allocations to:
//   - a bounded pseudo-stack of trace frames (where in the logical call
//     tree the goroutine currently is)
//   - a key/value context overlay (arbitrary annotations)
//
// Each goroutine that touches the allocation context API gets its own
// Tracker. Trackers are never shared, so none of their methods lock: only
// the owning goroutine mutates or reads its state.
//
// Performance requirements:
//   - PushFrame/PopFrame: plain array writes, no allocation
//   - SetField/UnsetField: linear scan of a handful of entries, no
//     allocation below fields.InlineCapacity keys
//   - Snapshot: one allocation per non-empty part (frames, fields)
package tracker
