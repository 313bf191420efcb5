package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLazyTrackerCreation verifies that trackers are created on first use
// and reused afterwards.
func TestLazyTrackerCreation(t *testing.T) {
	setup(t)

	require.Equal(t, int64(0), GetStats().LiveTrackers)

	first := getCurrentTracker()
	second := getCurrentTracker()

	assert.Same(t, first, second)
	assert.Equal(t, getGoroutineID(), first.GID)
	assert.Equal(t, int64(1), GetStats().LiveTrackers)
	assert.Equal(t, uint64(1), GetStats().CreatedTrackers)
}

// TestRelease tests explicit teardown of the caller's tracker.
func TestRelease(t *testing.T) {
	setup(t)

	PushPseudoStackFrame("A")
	before := getCurrentTracker()

	Release()

	s := GetStats()
	assert.Equal(t, int64(0), s.LiveTrackers)
	assert.Equal(t, uint64(1), s.ReleasedTrackers)

	// Releasing again is a no-op.
	Release()
	assert.Equal(t, uint64(1), GetStats().ReleasedTrackers)

	// The next call starts from a fresh tracker.
	after := getCurrentTracker()
	assert.NotSame(t, before, after)
	assert.Equal(t, 0, after.Depth())
}

// TestGoReleasesTracker verifies the exit hook installed by Go.
func TestGoReleasesTracker(t *testing.T) {
	setup(t)

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		Go(func() {
			defer wg.Done()
			PushPseudoStackFrame("worker")
			SetContextField("role", "worker")
		})
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		s := GetStats()
		return s.LiveTrackers == 0 && s.ReleasedTrackers == n
	}, 5*time.Second, time.Millisecond)
}

// TestSweepReclaimsExitedGoroutines verifies that trackers of goroutines that
// exited without Release are reclaimed.
func TestSweepReclaimsExitedGoroutines(t *testing.T) {
	setup(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			PushPseudoStackFrame("leaked")
		}()
	}
	wg.Wait()
	require.Equal(t, int64(n), GetStats().LiveTrackers)

	// A goroutine that called wg.Done may still be in the dump for a moment.
	require.Eventually(t, func() bool {
		Sweep()
		return GetStats().SweptTrackers == n
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, int64(0), GetStats().LiveTrackers)
}

// TestSweepKeepsLiveTrackers verifies that trackers of live goroutines and
// their state survive a sweep.
func TestSweepKeepsLiveTrackers(t *testing.T) {
	setup(t)

	PushPseudoStackFrame("main")

	const n = 5
	ready := make(chan struct{}, n)
	done := make(chan struct{})
	depths := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			PushPseudoStackFrame("parked")
			ready <- struct{}{}
			<-done
			depths <- GetContext().Depth()
		}()
	}
	for i := 0; i < n; i++ {
		<-ready
	}

	assert.Equal(t, 0, Sweep())
	assert.Equal(t, int64(n+1), GetStats().LiveTrackers)
	assert.Equal(t, 1, GetContext().Depth())

	close(done)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, <-depths)
	}
}

// TestImplicitSweep verifies that tracker creation triggers background
// sweeps at the configured interval.
func TestImplicitSweep(t *testing.T) {
	setup(t)

	opts := DefaultOptions()
	opts.SweepInterval = 4
	Configure(opts)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			PushPseudoStackFrame("short-lived")
		}()
	}
	wg.Wait()

	// Creations 4 and 8 each start one sweep.
	require.Eventually(t, func() bool {
		return GetStats().Sweeps == 2
	}, 5*time.Second, time.Millisecond)
}

// TestSweepDisabledInterval verifies that interval zero never sweeps
// implicitly.
func TestSweepDisabledInterval(t *testing.T) {
	setup(t)

	opts := DefaultOptions()
	opts.SweepInterval = 0
	Configure(opts)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			PushPseudoStackFrame("x")
		}()
	}
	wg.Wait()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, uint64(0), GetStats().Sweeps)
}
