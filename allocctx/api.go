package allocctx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kolkov/allocctx/internal/allocctx/allocation"
	internal "github.com/kolkov/allocctx/internal/allocctx/api"
	"github.com/kolkov/allocctx/internal/allocctx/fields"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
	"github.com/kolkov/allocctx/internal/config"
	"github.com/kolkov/allocctx/internal/logging"
)

// MaxDepth is the maximum number of frames on a goroutine's pseudo-stack.
const MaxDepth = pseudostack.MaxDepth

// DebugChecks reports whether this binary was built with -tags allocctxdebug.
const DebugChecks = pseudostack.DebugChecks

type (
	// Frame identifies a traced scope.
	Frame = pseudostack.Frame

	// Field is one key/value pair of a context overlay.
	Field = fields.Field

	// Context is an immutable snapshot of a goroutine's tracker.
	Context = allocation.Context

	// Options configures the tracker runtime.
	Options = internal.Options

	// Stats is a point-in-time view of the tracker registry.
	Stats = internal.Stats
)

var (
	// ErrOverflow is wrapped by the debug-build panic raised on a push
	// beyond MaxDepth.
	ErrOverflow = pseudostack.ErrOverflow

	// ErrUnbalancedPop is wrapped by the debug-build panic raised when a
	// pop names a frame other than the top one.
	ErrUnbalancedPop = pseudostack.ErrUnbalancedPop
)

// DefaultOptions returns the options used when Init is never called.
func DefaultOptions() Options {
	return internal.DefaultOptions()
}

// Init configures the tracker runtime.
//
// Init is safe to call multiple times; the last call wins.
func Init(opts Options) {
	internal.Init(opts)
}

// InitFromEnv configures the tracker runtime and its logger from ALLOCCTX_*
// environment variables.
func InitFromEnv() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	opts := cfg.APIOptions()
	opts.Logger = logger
	internal.Init(opts)
	return nil
}

// Fini disables capture, reclaims trackers of exited goroutines and logs a
// summary.
func Fini() {
	internal.Fini()
}

// SetLogger replaces the logger used for lifecycle events. Nil installs a
// no-op logger.
func SetLogger(l *zap.Logger) {
	internal.SetLogger(l)
}

// SetCaptureEnabled turns context capture on or off for the whole process.
func SetCaptureEnabled(enabled bool) {
	internal.SetCaptureEnabled(enabled)
}

// CaptureEnabled reports whether allocation contexts should be captured.
// Allocator hooks call it before GetContext on every allocation.
func CaptureEnabled() bool {
	return internal.CaptureEnabled()
}

// PushPseudoStackFrame pushes frame onto the calling goroutine's
// pseudo-stack.
func PushPseudoStackFrame(frame Frame) {
	internal.PushPseudoStackFrame(frame)
}

// PopPseudoStackFrame pops the top frame of the calling goroutine's
// pseudo-stack. frame must be the frame pushed last.
func PopPseudoStackFrame(frame Frame) {
	internal.PopPseudoStackFrame(frame)
}

// SetContextField sets key to value in the calling goroutine's overlay.
func SetContextField(key, value string) {
	internal.SetContextField(key, value)
}

// UnsetContextField removes key from the calling goroutine's overlay.
func UnsetContextField(key string) {
	internal.UnsetContextField(key)
}

// GetContext returns a snapshot of the calling goroutine's tracker.
func GetContext() Context {
	return internal.GetContext()
}

// Scope is a frame pushed by Enter.
type Scope struct {
	frame  Frame
	pushed bool
}

// Enter pushes frame when capture is enabled and returns a Scope whose End
// pops it again:
//
//	defer allocctx.Enter("parse").End()
//
// When capture is disabled nothing is pushed and End does nothing, so a
// scope entered before capture was turned on stays balanced.
func Enter(frame Frame) Scope {
	if !internal.CaptureEnabled() {
		return Scope{}
	}
	internal.PushPseudoStackFrame(frame)
	return Scope{frame: frame, pushed: true}
}

// End pops the scope's frame if Enter pushed it.
func (s Scope) End() {
	if s.pushed {
		internal.PopPseudoStackFrame(s.frame)
	}
}

// Go runs fn in a new goroutine and releases its tracker when fn returns.
func Go(fn func()) {
	internal.Go(fn)
}

// Release destroys the calling goroutine's tracker.
func Release() {
	internal.Release()
}

// Sweep reclaims trackers of exited goroutines and returns how many were
// reclaimed.
func Sweep() int {
	return internal.Sweep()
}

// GetStats returns registry statistics.
func GetStats() Stats {
	return internal.GetStats()
}

// PseudoStackDepthForTesting returns the depth of the calling goroutine's
// pseudo-stack. Only tests should call it.
func PseudoStackDepthForTesting() int {
	return internal.PseudoStackForTesting().Len()
}
