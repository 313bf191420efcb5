// Package api provides the static entry points of the allocation context
// tracker.
//
// Every function resolves the calling goroutine's Tracker, creating it on
// first use. Two kinds of callers exist:
//   - the tracing layer, which pushes and pops frames at traced scope
//     boundaries and sets context fields
//   - the allocator hook, which on every intercepted allocation checks
//     CaptureEnabled and, if true, stores GetContext alongside the
//     allocation's address and size
//
// Performance Targets:
//   - CaptureEnabled (disabled): ~0.5ns, one load and a branch
//   - PushPseudoStackFrame / PopPseudoStackFrame: < 10ns (cached tracker)
//   - GetContext: < 100ns for a typical 10-20 frame stack
//   - getCurrentTracker (first call per goroutine): < 200ns
//
// Push, pop and field updates are accepted whether or not capture is
// enabled, so re-enabling capture never loses the current nesting depth.
// Gating is the caller's job.
package api

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kolkov/allocctx/internal/allocctx/allocation"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
)

const (
	// DefaultSweepInterval is the default number of tracker creations
	// between two implicit sweeps.
	DefaultSweepInterval = 1000

	// DefaultMaxSnapshotDepth copies the whole pseudo-stack into snapshots.
	DefaultMaxSnapshotDepth = pseudostack.MaxDepth
)

// Options configures the tracker runtime.
type Options struct {
	// CaptureEnabled is the initial state of the capture flag.
	CaptureEnabled bool

	// MaxSnapshotDepth bounds the number of top frames copied into each
	// snapshot. Values outside 1..pseudostack.MaxDepth select the default.
	MaxSnapshotDepth int

	// SweepInterval is the number of tracker creations between implicit
	// sweeps of trackers left behind by exited goroutines. Zero disables
	// implicit sweeps; Sweep can still be called directly.
	SweepInterval uint64

	// Logger receives lifecycle events. Nil keeps the current logger.
	Logger *zap.Logger
}

// DefaultOptions returns the options used when Init is never called.
func DefaultOptions() Options {
	return Options{
		MaxSnapshotDepth: DefaultMaxSnapshotDepth,
		SweepInterval:    DefaultSweepInterval,
	}
}

var (
	// maxSnapshotDepth is read on every GetContext.
	maxSnapshotDepth atomic.Int64

	// logger receives lifecycle events; never nil after init.
	logger atomic.Pointer[zap.Logger]
)

func init() {
	logger.Store(zap.NewNop())
	Configure(DefaultOptions())
}

// Configure applies opts to the tracker runtime without touching the
// capture flag or any registered tracker.
func Configure(opts Options) {
	depth := opts.MaxSnapshotDepth
	if depth <= 0 || depth > pseudostack.MaxDepth {
		depth = DefaultMaxSnapshotDepth
	}
	maxSnapshotDepth.Store(int64(depth))
	sweepInterval.Store(opts.SweepInterval)
	if opts.Logger != nil {
		logger.Store(opts.Logger)
	}
}

// SetLogger replaces the lifecycle logger. A nil logger discards events.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func currentLogger() *zap.Logger {
	return logger.Load()
}

// PushPseudoStackFrame pushes frame onto the calling goroutine's
// pseudo-stack.
//
// Called by the tracing layer when entering a traced scope. The frame must
// stay valid for as long as it may be captured; static strings always do.
func PushPseudoStackFrame(frame pseudostack.Frame) {
	getCurrentTracker().PushFrame(frame)
}

// PopPseudoStackFrame pops the top frame of the calling goroutine's
// pseudo-stack.
//
// frame names the scope being left. It is checked against the top frame in
// debug builds only; the top frame is always the one removed. Popping an
// empty stack is a no-op.
func PopPseudoStackFrame(frame pseudostack.Frame) {
	getCurrentTracker().PopFrame(frame)
}

// SetContextField sets a (key, value) pair in the calling goroutine's
// context overlay, replacing any previous value for key.
func SetContextField(key, value string) {
	getCurrentTracker().SetField(key, value)
}

// UnsetContextField removes key from the calling goroutine's context
// overlay. Removing an absent key is a no-op.
func UnsetContextField(key string) {
	getCurrentTracker().UnsetField(key)
}

// GetContext returns a snapshot of the calling goroutine's allocation
// context.
//
// Callers are expected to check CaptureEnabled first. A goroutine that never
// pushed a frame or set a field gets an empty context, and no tracker is
// created for it.
func GetContext() allocation.Context {
	t, ok := lookupCurrentTracker()
	if !ok {
		return allocation.Context{}
	}
	return t.Snapshot(int(maxSnapshotDepth.Load()))
}

// PseudoStackForTesting returns the calling goroutine's raw pseudo-stack.
//
// This exists only to validate push/pop sequencing in tests. Production
// code must use GetContext.
func PseudoStackForTesting() *pseudostack.Stack {
	return getCurrentTracker().PseudoStack()
}
