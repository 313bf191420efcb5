package api

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kolkov/allocctx/internal/allocctx/fields"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
)

// setup resets the runtime before and after a test.
func setup(t *testing.T) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)
}

// TestCaptureEnabledToggle tests the capture flag from a single goroutine.
func TestCaptureEnabledToggle(t *testing.T) {
	setup(t)

	assert.False(t, CaptureEnabled(), "capture must start disabled")

	SetCaptureEnabled(true)
	assert.True(t, CaptureEnabled())

	// Redundant enable is harmless.
	SetCaptureEnabled(true)
	assert.True(t, CaptureEnabled())

	SetCaptureEnabled(false)
	assert.False(t, CaptureEnabled())
	SetCaptureEnabled(false)
	assert.False(t, CaptureEnabled())
}

// TestCaptureEnabledConcurrentToggles verifies that concurrent toggles are
// safe and settle on the last value written.
func TestCaptureEnabledConcurrentToggles(t *testing.T) {
	setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetCaptureEnabled((i+j)%2 == 0)
				_ = CaptureEnabled()
			}
		}(i)
	}
	wg.Wait()

	SetCaptureEnabled(true)
	assert.True(t, CaptureEnabled())
}

// TestCaptureVisibleWithFreshState verifies that a goroutine observing the
// flag set by another goroutine initializes its own, empty tracker.
func TestCaptureVisibleWithFreshState(t *testing.T) {
	setup(t)

	enabled := make(chan struct{})
	go func() {
		PushPseudoStackFrame("A-only")
		SetContextField("owner", "A")
		SetCaptureEnabled(true)
		close(enabled)
	}()

	result := make(chan struct {
		depth int
		empty bool
	})
	go func() {
		for !CaptureEnabled() {
			time.Sleep(time.Microsecond)
		}
		ctx := GetContext()
		result <- struct {
			depth int
			empty bool
		}{PseudoStackForTesting().Len(), ctx.IsEmpty()}
	}()

	<-enabled
	got := <-result
	assert.Equal(t, 0, got.depth)
	assert.True(t, got.empty)
}

// TestPushPopSequence checks push/pop sequencing through the raw stack.
func TestPushPopSequence(t *testing.T) {
	setup(t)

	PushPseudoStackFrame("A")
	PushPseudoStackFrame("B")
	PopPseudoStackFrame("B")
	PushPseudoStackFrame("C")

	stack := PseudoStackForTesting()
	assert.Equal(t, []pseudostack.Frame{"C", "A"}, slices.Collect(stack.Top()))

	PopPseudoStackFrame("C")
	PopPseudoStackFrame("A")
	PopPseudoStackFrame("extra")
	assert.Equal(t, 0, stack.Len())
}

// TestGetContextSnapshot tests the canonical snapshot scenario and its
// independence from later mutation.
func TestGetContextSnapshot(t *testing.T) {
	setup(t)
	SetCaptureEnabled(true)

	PushPseudoStackFrame("A")
	PushPseudoStackFrame("B")
	PushPseudoStackFrame("C")
	SetContextField("role", "worker")

	ctx := GetContext()

	PopPseudoStackFrame("C")
	UnsetContextField("role")

	assert.Equal(t, []pseudostack.Frame{"C", "B", "A"}, slices.Collect(ctx.Top()))
	v, ok := ctx.Field("role")
	require.True(t, ok)
	assert.Equal(t, "worker", v)

	after := GetContext()
	assert.Equal(t, []pseudostack.Frame{"B", "A"}, after.Backtrace())
	assert.Equal(t, 0, after.NumFields())
}

// TestGetContextEmpty verifies that a goroutine with no state gets an
// empty context and no tracker.
func TestGetContextEmpty(t *testing.T) {
	setup(t)
	SetCaptureEnabled(true)

	ctx := GetContext()

	assert.True(t, ctx.IsEmpty())
	assert.Equal(t, 0, ctx.Depth())
	assert.Equal(t, 0, ctx.NumFields())
	assert.Equal(t, int64(0), GetStats().LiveTrackers)
}

// TestContextFieldLastWriteWins tests set, overwrite and unset semantics.
func TestContextFieldLastWriteWins(t *testing.T) {
	setup(t)

	SetContextField("k", "v1")
	SetContextField("k", "v2")
	assert.Equal(t, []fields.Field{{Key: "k", Value: "v2"}}, GetContext().Fields())

	UnsetContextField("k")
	assert.Equal(t, 0, GetContext().NumFields())

	assert.NotPanics(t, func() { UnsetContextField("k") })
	assert.Equal(t, 0, GetContext().NumFields())
}

// TestPushPopIgnoresCaptureFlag verifies that the stack keeps its nesting
// depth across disable/enable.
func TestPushPopIgnoresCaptureFlag(t *testing.T) {
	setup(t)

	PushPseudoStackFrame("outer")
	SetCaptureEnabled(true)
	PushPseudoStackFrame("inner")
	SetCaptureEnabled(false)
	SetCaptureEnabled(true)

	assert.Equal(t, []pseudostack.Frame{"inner", "outer"}, GetContext().Backtrace())
}

// TestOverflowThroughAPI verifies that the 129th push is absorbed in release
// builds.
func TestOverflowThroughAPI(t *testing.T) {
	if pseudostack.DebugChecks {
		t.Skip("debug builds panic on overflow, covered in pseudostack")
	}
	setup(t)

	for i := 0; i <= pseudostack.MaxDepth; i++ {
		PushPseudoStackFrame(pseudostack.Frame(fmt.Sprintf("f%d", i)))
	}
	assert.Equal(t, pseudostack.MaxDepth, PseudoStackForTesting().Len())
}

// TestGoroutineIsolation verifies that concurrent goroutines never see each
// other's frames or fields.
func TestGoroutineIsolation(t *testing.T) {
	setup(t)
	SetCaptureEnabled(true)

	const numGoroutines = 32
	const depth = 20

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			defer Release()

			name := fmt.Sprintf("g%d", g)
			SetContextField("goroutine", name)
			for i := 0; i < depth; i++ {
				PushPseudoStackFrame(pseudostack.Frame(fmt.Sprintf("%s-%d", name, i)))
			}

			ctx := GetContext()
			if ctx.Depth() != depth {
				errs <- fmt.Errorf("%s: depth %d, want %d", name, ctx.Depth(), depth)
				return
			}
			for f := range ctx.Top() {
				if !strings.HasPrefix(string(f), name+"-") {
					errs <- fmt.Errorf("%s: foreign frame %q", name, f)
					return
				}
			}
			if v, _ := ctx.Field("goroutine"); v != name {
				errs <- fmt.Errorf("%s: foreign field %q", name, v)
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

// TestMaxSnapshotDepth tests bounded snapshot prefixes.
func TestMaxSnapshotDepth(t *testing.T) {
	setup(t)

	opts := DefaultOptions()
	opts.MaxSnapshotDepth = 2
	Configure(opts)

	for _, f := range []pseudostack.Frame{"A", "B", "C", "D"} {
		PushPseudoStackFrame(f)
	}

	ctx := GetContext()
	assert.Equal(t, []pseudostack.Frame{"D", "C"}, ctx.Backtrace())
	assert.True(t, ctx.Truncated())

	// Out-of-range values fall back to the full depth.
	opts.MaxSnapshotDepth = pseudostack.MaxDepth + 1
	Configure(opts)
	assert.Equal(t, 4, GetContext().Depth())
}

// TestInitFiniLogging verifies lifecycle logging and flag handling.
func TestInitFiniLogging(t *testing.T) {
	setup(t)

	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(func() { SetLogger(nil) })

	opts := DefaultOptions()
	opts.CaptureEnabled = true
	opts.Logger = zap.New(core)
	Init(opts)

	assert.True(t, CaptureEnabled())
	assert.Equal(t, 1, logs.FilterMessage("allocation context capture toggled").Len())
	assert.Equal(t, 1, logs.FilterMessage("allocation context tracker initialized").Len())

	Fini()

	assert.False(t, CaptureEnabled())
	assert.Equal(t, 2, logs.FilterMessage("allocation context capture toggled").Len())
	assert.Equal(t, 1, logs.FilterMessage("allocation context tracker finalized").Len())
	assert.GreaterOrEqual(t, logs.FilterMessage("tracker sweep finished").Len(), 1)
}

// TestReset verifies that Reset drops trackers and counters.
func TestReset(t *testing.T) {
	setup(t)

	SetCaptureEnabled(true)
	PushPseudoStackFrame("A")
	require.Equal(t, int64(1), GetStats().LiveTrackers)

	Reset()

	s := GetStats()
	assert.False(t, s.CaptureEnabled)
	assert.Equal(t, int64(0), s.LiveTrackers)
	assert.Equal(t, uint64(0), s.CreatedTrackers)
	assert.Equal(t, 0, PseudoStackForTesting().Len())
}

// BenchmarkCaptureEnabledDisabled measures the disabled fast path.
func BenchmarkCaptureEnabledDisabled(b *testing.B) {
	Reset()
	for i := 0; i < b.N; i++ {
		if CaptureEnabled() {
			b.Fatal("capture unexpectedly enabled")
		}
	}
}

// BenchmarkPushPop measures a traced scope entry and exit.
func BenchmarkPushPop(b *testing.B) {
	Reset()
	defer Reset()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		PushPseudoStackFrame("bench")
		PopPseudoStackFrame("bench")
	}
}

// BenchmarkGetContext measures snapshot assembly on the allocation path.
func BenchmarkGetContext(b *testing.B) {
	Reset()
	defer Reset()
	SetCaptureEnabled(true)
	for i := 0; i < 12; i++ {
		PushPseudoStackFrame(pseudostack.Frame(fmt.Sprintf("f%d", i)))
	}
	SetContextField("role", "bench")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if CaptureEnabled() {
			_ = GetContext()
		}
	}
}
