// Package heapprofile is a reference heap-profile sink.
//
// A Recorder stands where an allocator hook would call into the profiler:
// on every intercepted allocation it checks the capture flag, samples, and
// stores the current goroutine's allocation context against the address.
// Frees remove the matching record. Summaries aggregate live allocations
// per context.
package heapprofile

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kolkov/allocctx/internal/allocctx/allocation"
	"github.com/kolkov/allocctx/internal/allocctx/api"
	"github.com/kolkov/allocctx/internal/allocctx/depot"
)

// ContextSource supplies the capture flag and allocation contexts.
type ContextSource interface {
	SetCaptureEnabled(enabled bool)
	CaptureEnabled() bool
	GetContext() allocation.Context
}

// trackerSource reads the calling goroutine's tracker.
type trackerSource struct{}

func (trackerSource) SetCaptureEnabled(enabled bool) { api.SetCaptureEnabled(enabled) }
func (trackerSource) CaptureEnabled() bool { return api.CaptureEnabled() }
func (trackerSource) GetContext() allocation.Context { return api.GetContext() }

// Record is one live sampled allocation.
type Record struct {
	Address uintptr
	Size    uint64
	Context depot.ID
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSource overrides where contexts come from.
func WithSource(src ContextSource) Option {
	return func(r *Recorder) { r.source = src }
}

// WithSampleRate records 1 in rate allocations.
func WithSampleRate(rate uint64) Option {
	return func(r *Recorder) { r.sampler = NewSampler(rate) }
}

// WithLogger sets the recorder's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics exports recorder activity through m.
func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// Recorder attributes sampled allocations to allocation contexts.
//
// OnAlloc and OnFree may be called from any goroutine. The context of an
// allocation is always read from the goroutine calling OnAlloc.
type Recorder struct {
	source  ContextSource
	sampler *Sampler
	depot   *depot.Depot
	logger  *zap.Logger
	metrics *Metrics

	running atomic.Bool

	mu      sync.Mutex
	session uuid.UUID
	live    map[uintptr]Record
}

// NewRecorder creates a stopped recorder.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		source:  trackerSource{},
		sampler: NewSampler(1),
		depot:   depot.New(),
		logger:  zap.NewNop(),
		live:    make(map[uintptr]Record),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a new profiling session and enables context capture.
// Records of a previous session are discarded.
func (r *Recorder) Start() uuid.UUID {
	r.mu.Lock()
	r.session = uuid.New()
	clear(r.live)
	r.depot.Reset()
	r.sampler.Reset()
	session := r.session
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.LiveBytes.Set(0)
		r.metrics.LiveAllocations.Set(0)
		r.metrics.Contexts.Set(0)
	}

	r.running.Store(true)
	r.source.SetCaptureEnabled(true)
	r.logger.Info("heap profile started",
		zap.String("session", session.String()),
		zap.Uint64("sample_rate", r.sampler.Rate()))
	return session
}

// Stop disables context capture. Recorded allocations stay available to
// Summary until the next Start.
func (r *Recorder) Stop() {
	if !r.running.Swap(false) {
		return
	}
	r.source.SetCaptureEnabled(false)

	stats := r.sampler.Stats()
	r.mu.Lock()
	live := len(r.live)
	session := r.session
	r.mu.Unlock()
	r.logger.Info("heap profile stopped",
		zap.String("session", session.String()),
		zap.Uint64("sampled", stats.Sampled),
		zap.Uint64("skipped", stats.Skipped),
		zap.Int("live", live))
}

// Running reports whether a session is in progress.
func (r *Recorder) Running() bool {
	return r.running.Load()
}

// Session returns the ID of the current or last session.
func (r *Recorder) Session() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// OnAlloc records an allocation of size bytes at addr made by the calling
// goroutine. It returns false when the allocation was not recorded, either
// because capture is disabled or because sampling skipped it.
func (r *Recorder) OnAlloc(addr uintptr, size uint64) bool {
	if !r.source.CaptureEnabled() {
		return false
	}
	if !r.sampler.ShouldSample() {
		if r.metrics != nil {
			r.metrics.AllocationsSkipped.Inc()
		}
		return false
	}

	id := r.depot.Intern(r.source.GetContext())

	r.mu.Lock()
	prev, replaced := r.live[addr]
	r.live[addr] = Record{Address: addr, Size: size, Context: id}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.AllocationsRecorded.Inc()
		r.metrics.LiveBytes.Add(float64(size))
		if replaced {
			r.metrics.LiveBytes.Sub(float64(prev.Size))
		} else {
			r.metrics.LiveAllocations.Inc()
		}
		contexts, _ := r.depot.Stats()
		r.metrics.Contexts.Set(float64(contexts))
	}
	return true
}

// OnFree removes the record for addr, if any. Frees are matched even after
// Stop so that a restarted hook does not report stale allocations.
func (r *Recorder) OnFree(addr uintptr) bool {
	r.mu.Lock()
	rec, ok := r.live[addr]
	if ok {
		delete(r.live, addr)
	}
	r.mu.Unlock()

	if ok && r.metrics != nil {
		r.metrics.FreesRecorded.Inc()
		r.metrics.LiveBytes.Sub(float64(rec.Size))
		r.metrics.LiveAllocations.Dec()
	}
	return ok
}

// Lookup returns the live record for addr.
func (r *Recorder) Lookup(addr uintptr) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.live[addr]
	return rec, ok
}

// Context resolves a record's context ID.
func (r *Recorder) Context(id depot.ID) (allocation.Context, bool) {
	return r.depot.Lookup(id)
}

// SamplerStats returns the sampling statistics of the current session.
func (r *Recorder) SamplerStats() SamplerStats {
	return r.sampler.Stats()
}
