package kpi

import (
	"time"

	"kpiboard/internal/filter"
	"kpiboard/internal/records"
)

// Engine computes KPI sets against whatever store the holder currently
// publishes. It is safe for concurrent use.
type Engine struct {
	holder *records.Holder
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to anchor month windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an engine reading from h.
func NewEngine(h *records.Holder, opts ...Option) *Engine {
	if h == nil {
		h = records.NewHolder(nil)
	}
	e := &Engine{holder: h, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Holder returns the store holder the engine reads from.
func (e *Engine) Holder() *records.Holder { return e.holder }

// Compute loads the current store once and aggregates it.
func (e *Engine) Compute(f filter.Filter) *Set {
	return Compute(e.holder.Load(), f, e.now())
}

// Summarize computes the set and its chart summaries from one store read.
func (e *Engine) Summarize(f filter.Filter) (*Set, *Summary) {
	set := e.Compute(f)
	return set, Summarize(set)
}

// ComputeEach computes every named filter against a single store read.
func (e *Engine) ComputeEach(filters map[string]filter.Filter) (*records.Store, map[string]*Set) {
	return e.ComputeEachAt(filters, e.now())
}

// ComputeEachAt is ComputeEach with month windows ending at the month
// containing now.
func (e *Engine) ComputeEachAt(filters map[string]filter.Filter, now time.Time) (*records.Store, map[string]*Set) {
	store := e.holder.Load()
	out := make(map[string]*Set, len(filters))
	for name, f := range filters {
		out[name] = Compute(store, f, now)
	}
	return store, out
}
