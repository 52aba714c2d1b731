package analyzer

import (
	"context"
	"sync"
	"sync/atomic"
)

// Phase names a parallel stage of an analysis run.
type Phase string

const (
	PhaseExtract Phase = "extract"
	PhaseResolve Phase = "resolve"
)

// ProgressFunc is called to report analysis progress. current is the number
// of files finished in phase, total the number the phase started with.
type ProgressFunc func(phase Phase, current, total int)

// Tracker tracks progress across the phases of one run.
// It is safe for concurrent use from multiple goroutines, and a nil
// *Tracker ignores every call.
type Tracker struct {
	mu       sync.RWMutex
	phase    Phase
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a new progress tracker with the given callback.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Start begins a phase of total files and resets the counter.
func (t *Tracker) Start(phase Phase, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.phase = phase
	t.total.Store(int64(total))
	t.current.Store(0)
	t.mu.Unlock()
	if t.callback != nil {
		t.callback(phase, 0, total)
	}
}

// Tick marks one file of the current phase as finished.
func (t *Tracker) Tick() {
	if t == nil {
		return
	}
	t.mu.RLock()
	phase := t.phase
	current := int(t.current.Add(1))
	total := int(t.total.Load())
	t.mu.RUnlock()
	if t.callback != nil {
		t.callback(phase, current, total)
	}
}

// Phase returns the phase in progress.
func (t *Tracker) Phase() Phase {
	if t == nil {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

// Current returns the current progress count.
func (t *Tracker) Current() int {
	if t == nil {
		return 0
	}
	return int(t.current.Load())
}

// Total returns the total count of the current phase.
func (t *Tracker) Total() int {
	if t == nil {
		return 0
	}
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
// Use TrackerFromContext to extract it in the processing layer.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context.
// Returns nil if no tracker was set.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
