package heapprofile

import (
	"sync/atomic"
)

// Sampler selects 1 in Rate intercepted allocations for recording.
//
// Uses TSAN's trace_pos approach: an atomic counter incremented on every
// call, with modulo-based selection. This provides:
//   - Zero overhead when the rate is 1 (single branch)
//   - Near-zero overhead otherwise (~5ns atomic increment)
//   - Uniform distribution of sampled allocations
//
// Thread Safety: All methods are safe for concurrent calls.
type Sampler struct {
	rate uint64

	pos     atomic.Uint64
	sampled atomic.Uint64
	skipped atomic.Uint64
}

// SamplerStats tracks sampling decisions.
type SamplerStats struct {
	// Sampled counts allocations selected for recording.
	Sampled uint64

	// Skipped counts allocations skipped due to sampling.
	Skipped uint64
}

// NewSampler creates a sampler recording 1 in rate allocations.
// A rate of 0 or 1 records every allocation.
func NewSampler(rate uint64) *Sampler {
	if rate == 0 {
		rate = 1
	}
	return &Sampler{rate: rate}
}

// ShouldSample reports whether the current allocation should be recorded.
//
// Performance:
//   - Rate 1: ~0.5ns (single predictable branch)
//   - Rate > 1: ~5ns (atomic add + modulo)
func (s *Sampler) ShouldSample() bool {
	if s.rate <= 1 {
		s.sampled.Add(1)
		return true
	}

	if s.pos.Add(1)%s.rate == 0 {
		s.sampled.Add(1)
		return true
	}
	s.skipped.Add(1)
	return false
}

// Rate returns the sampling rate. Recorded byte counts multiplied by Rate
// estimate the real totals.
func (s *Sampler) Rate() uint64 {
	return s.rate
}

// Stats returns a copy of the sampling statistics.
func (s *Sampler) Stats() SamplerStats {
	return SamplerStats{
		Sampled: s.sampled.Load(),
		Skipped: s.skipped.Load(),
	}
}

// Reset clears the counters.
func (s *Sampler) Reset() {
	s.pos.Store(0)
	s.sampled.Store(0)
	s.skipped.Store(0)
}
