package api

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kolkov/allocctx/internal/allocctx/tracker"
)

// Goroutine registry state.
var (
	// trackers maps goroutine IDs to their Tracker.
	// Using sync.Map for lock-free concurrent access patterns:
	//   - Each tracker is stored once and loaded on every API call
	//   - Writes only happen when a goroutine first touches the API or
	//     when its tracker is torn down
	// Key: int64 (goroutine ID)
	// Value: *tracker.Tracker.
	trackers sync.Map

	// trackerSeq numbers trackers in creation order. The sweep uses it as a
	// cut-off so it never reclaims a tracker newer than its goroutine dump.
	trackerSeq atomic.Uint64

	// liveTrackers is the number of trackers currently registered.
	liveTrackers atomic.Int64

	// releasedTrackers counts trackers destroyed by Release.
	releasedTrackers atomic.Uint64

	// sweptTrackers counts trackers reclaimed by the sweep.
	sweptTrackers atomic.Uint64

	// sweeps counts completed sweeps.
	sweeps atomic.Uint64

	// sweepInterval is the number of tracker creations between sweeps.
	// Zero disables implicit sweeps.
	sweepInterval atomic.Uint64

	// sweepMu serializes sweeps. Only the sweep takes it, never the hot path.
	sweepMu sync.Mutex
)

// getCurrentTracker returns the Tracker of the calling goroutine.
//
// On first access per goroutine it:
//  1. Extracts the goroutine ID
//  2. Creates a Tracker stamped with the next sequence number
//  3. Registers it
//
// Later accesses are a single map lookup.
//
// Performance:
//   - First call per goroutine: ~100ns
//   - Cached calls: ~5ns (goid read + sync.Map load)
func getCurrentTracker() *tracker.Tracker {
	gid := getGoroutineID()

	if val, ok := trackers.Load(gid); ok {
		return val.(*tracker.Tracker)
	}

	// Only the owning goroutine ever stores under its own ID, so there is
	// no competing insert to lose against.
	seq := trackerSeq.Add(1)
	t := tracker.New(gid, seq)
	trackers.Store(gid, t)
	liveTrackers.Add(1)

	maybeSweep(seq)

	return t
}

// lookupCurrentTracker returns the calling goroutine's tracker without
// creating one.
func lookupCurrentTracker() (*tracker.Tracker, bool) {
	val, ok := trackers.Load(getGoroutineID())
	if !ok {
		return nil, false
	}
	return val.(*tracker.Tracker), true
}

// Release destroys the calling goroutine's tracker.
//
// This is the goroutine-exit hook: call it (usually deferred) as the last
// thing a goroutine does with allocation context. A later API call from the
// same goroutine starts again from an empty tracker.
//
// Thread Safety: Safe for concurrent calls; only touches the caller's entry.
func Release() {
	gid := getGoroutineID()
	val, ok := trackers.LoadAndDelete(gid)
	if !ok {
		return
	}
	val.(*tracker.Tracker).Release()
	liveTrackers.Add(-1)
	releasedTrackers.Add(1)
}

// Go runs fn in a new goroutine whose tracker is released when fn returns.
func Go(fn func()) {
	go func() {
		defer Release()
		fn()
	}()
}

// maybeSweep triggers a background sweep every sweepInterval creations.
func maybeSweep(seq uint64) {
	interval := sweepInterval.Load()
	if interval == 0 || seq%interval != 0 {
		return
	}
	go Sweep()
}

// Sweep reclaims trackers whose goroutine has exited.
//
// Algorithm:
//  1. Record the current creation sequence as the cut-off
//  2. Enumerate live goroutine IDs via runtime.Stack
//  3. Delete every tracker created before the cut-off whose goroutine is
//     not in the live set
//
// A tracker created after step 1 may belong to a goroutine missing from the
// dump, so it is skipped; the next sweep will judge it.
//
// Performance: ~1ms per 1000 goroutines (dominated by runtime.Stack).
//
// Thread Safety: Safe for concurrent calls; sweeps are serialized.
//
// Returns:
//   - int: number of trackers reclaimed
func Sweep() int {
	sweepMu.Lock()
	defer sweepMu.Unlock()

	start := time.Now()
	cutoff := trackerSeq.Load()

	liveGIDs := getLiveGoroutineIDs()
	liveSet := make(map[int64]struct{}, len(liveGIDs))
	for _, gid := range liveGIDs {
		liveSet[gid] = struct{}{}
	}

	reclaimed := 0
	trackers.Range(func(key, value any) bool {
		gid := key.(int64)
		t := value.(*tracker.Tracker)

		if t.Seq > cutoff {
			return true
		}
		if _, alive := liveSet[gid]; alive {
			return true
		}

		// CompareAndDelete guards against a concurrent Release of the same
		// entry being counted twice.
		if trackers.CompareAndDelete(gid, t) {
			liveTrackers.Add(-1)
			sweptTrackers.Add(1)
			reclaimed++
		}
		return true
	})

	sweeps.Add(1)
	currentLogger().Debug("tracker sweep finished",
		zap.Int("reclaimed", reclaimed),
		zap.Int("live_goroutines", len(liveGIDs)),
		zap.Duration("elapsed", time.Since(start)))

	return reclaimed
}
