package api

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// captureFlag holds the global capture-enabled state on its own cache line.
type captureFlag struct {
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

var capture captureFlag

// SetCaptureEnabled globally enables or disables allocation context capture.
//
// The store has release semantics: any state a goroutine initialized before
// enabling capture is visible to every goroutine that then observes
// CaptureEnabled() == true. Redundant calls are harmless; concurrent callers
// race only on the final value.
//
// Thread Safety: Safe for concurrent calls.
func SetCaptureEnabled(enabled bool) {
	var v uint32
	if enabled {
		v = 1
	}
	if old := capture.v.Swap(v); old != v {
		currentLogger().Info("allocation context capture toggled",
			zap.Bool("enabled", enabled))
	}
}

// CaptureEnabled reports whether allocation context capture is enabled.
//
// This is called on every intercepted allocation, so the disabled case must
// cost one load and a branch. The read is two-tier:
//  1. The first load only answers "definitely disabled". A little lag after
//     capture is toggled is fine, what matters is that the common case
//     exits immediately.
//  2. When the first load says "maybe enabled", a second load is performed
//     and its result returned. It pairs with the store in
//     SetCaptureEnabled, so a true result guarantees the caller observes
//     everything sequenced before the enabling store.
//
// Go's atomic loads are already acquire loads, so tier 1 costs the same
// single instruction on amd64 and arm64 as a relaxed load would elsewhere.
//
// Performance: ~0.5ns when disabled.
//
//go:nosplit
func CaptureEnabled() bool {
	if capture.v.Load() == 0 {
		return false
	}
	return capture.v.Load() != 0
}
