package heapprofile

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kolkov/allocctx/internal/allocctx/allocation"
	"github.com/kolkov/allocctx/internal/allocctx/depot"
	"github.com/kolkov/allocctx/internal/allocctx/fields"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
)

// Summary aggregates the live allocations of a session by context.
type Summary struct {
	Session         uuid.UUID        `json:"session"`
	SampleRate      uint64           `json:"sample_rate"`
	LiveAllocations int              `json:"live_allocations"`
	LiveBytes       uint64           `json:"live_bytes"`
	Contexts        []ContextSummary `json:"contexts"`
}

// ContextSummary describes the live allocations attributed to one context.
type ContextSummary struct {
	ID        depot.ID            `json:"id"`
	Frames    []pseudostack.Frame `json:"frames"`
	Fields    []fields.Field      `json:"fields,omitempty"`
	Truncated bool                `json:"truncated,omitempty"`
	Count     int                 `json:"count"`
	Bytes     uint64              `json:"bytes"`
	MeanSize  float64             `json:"mean_size"`
	StdDev    float64             `json:"stddev_size"`

	ctx allocation.Context
}

// Context returns the allocation context the summary describes.
func (s ContextSummary) Context() allocation.Context {
	return s.ctx
}

// Summary aggregates the live records. Contexts are ordered by live bytes,
// largest first, with ties broken by ID.
func (r *Recorder) Summary() Summary {
	sizes := make(map[depot.ID][]float64)

	r.mu.Lock()
	sum := Summary{
		Session:         r.session,
		SampleRate:      r.sampler.Rate(),
		LiveAllocations: len(r.live),
	}
	for _, rec := range r.live {
		sizes[rec.Context] = append(sizes[rec.Context], float64(rec.Size))
		sum.LiveBytes += rec.Size
	}
	r.mu.Unlock()

	sum.Contexts = make([]ContextSummary, 0, len(sizes))
	for id, s := range sizes {
		ctx, _ := r.depot.Lookup(id)
		cs := ContextSummary{
			ID:        id,
			Frames:    ctx.Backtrace(),
			Fields:    ctx.Fields(),
			Truncated: ctx.Truncated(),
			Count:     len(s),
			ctx:       ctx,
		}
		for _, v := range s {
			cs.Bytes += uint64(v)
		}
		if len(s) > 1 {
			cs.MeanSize, cs.StdDev = stat.MeanStdDev(s, nil)
		} else {
			cs.MeanSize = s[0]
		}
		sum.Contexts = append(sum.Contexts, cs)
	}

	slices.SortFunc(sum.Contexts, func(a, b ContextSummary) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sum
}
