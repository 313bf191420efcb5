package api

import (
	"go.uber.org/zap"
)

// Stats is a point-in-time view of the tracker registry.
type Stats struct {
	// CaptureEnabled is the current state of the capture flag.
	CaptureEnabled bool

	// LiveTrackers is the number of registered trackers.
	LiveTrackers int64

	// CreatedTrackers counts trackers created since Init or Reset.
	CreatedTrackers uint64

	// ReleasedTrackers counts trackers destroyed by Release.
	ReleasedTrackers uint64

	// SweptTrackers counts trackers reclaimed by sweeps.
	SweptTrackers uint64

	// Sweeps counts completed sweeps.
	Sweeps uint64
}

// GetStats returns registry statistics.
//
// Thread Safety: Safe for concurrent calls. Counters are read one by one, so
// the values may be slightly inconsistent while goroutines are active.
func GetStats() Stats {
	return Stats{
		CaptureEnabled:   CaptureEnabled(),
		LiveTrackers:     liveTrackers.Load(),
		CreatedTrackers:  trackerSeq.Load(),
		ReleasedTrackers: releasedTrackers.Load(),
		SweptTrackers:    sweptTrackers.Load(),
		Sweeps:           sweeps.Load(),
	}
}

// Init configures the tracker runtime and sets the capture flag from opts.
//
// Init does not drop existing trackers: goroutines already inside traced
// scopes keep their nesting depth. Use Reset for a clean slate.
//
// Example:
//
//	opts := api.DefaultOptions()
//	opts.CaptureEnabled = true
//	api.Init(opts)
//	defer api.Fini()
func Init(opts Options) {
	Configure(opts)
	SetCaptureEnabled(opts.CaptureEnabled)

	currentLogger().Info("allocation context tracker initialized",
		zap.Bool("capture_enabled", opts.CaptureEnabled),
		zap.Int64("max_snapshot_depth", maxSnapshotDepth.Load()),
		zap.Uint64("sweep_interval", sweepInterval.Load()))
}

// Fini disables capture, reclaims trackers of exited goroutines and logs a
// summary of the registry.
//
// After Fini, GetContext still works but CaptureEnabled reports false until
// capture is enabled again.
func Fini() {
	SetCaptureEnabled(false)
	Sweep()

	s := GetStats()
	currentLogger().Info("allocation context tracker finalized",
		zap.Int64("live_trackers", s.LiveTrackers),
		zap.Uint64("created_trackers", s.CreatedTrackers),
		zap.Uint64("released_trackers", s.ReleasedTrackers),
		zap.Uint64("swept_trackers", s.SweptTrackers),
		zap.Uint64("sweeps", s.Sweeps))
}

// Reset restores the initial state for testing.
//
// It disables capture, drops every tracker, zeroes the counters and
// re-applies DefaultOptions. The lifecycle logger is kept.
//
// Thread Safety: NOT safe for concurrent use with any other function of
// this package. Only use it in single-goroutine test setup/teardown.
func Reset() {
	sweepMu.Lock()
	defer sweepMu.Unlock()

	capture.v.Store(0)
	trackers.Clear()
	trackerSeq.Store(0)
	liveTrackers.Store(0)
	releasedTrackers.Store(0)
	sweptTrackers.Store(0)
	sweeps.Store(0)
	Configure(DefaultOptions())
}
