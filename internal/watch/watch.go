// Package watch polls source references and triggers a reload when their
// content changes.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"kpiboard/internal/records"
	"kpiboard/internal/source"
)

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = 30 * time.Second

// State is the last observation of one reference.
type State struct {
	Ref      string `json:"ref"`
	Hash     string `json:"hash"`
	Exists   bool   `json:"exists"`
	LastSeen string `json:"last_seen"`
}

// Change describes one reference that differs from the previous poll.
type Change struct {
	Kind    string `json:"kind"`
	Ref     string `json:"ref"`
	Deleted bool   `json:"deleted,omitempty"`
}

// OnChange is invoked with the changes of one poll.
type OnChange func(ctx context.Context, changes []Change) error

// Watcher hashes every reference of a layout on each poll.
type Watcher struct {
	fetcher  source.Fetcher
	layout   source.Layout
	interval time.Duration
	onChange OnChange
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	state map[string]State
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the clock used for LastSeen.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// New returns a watcher. f should be the uncached fetcher so polls see
// fresh content.
func New(f source.Fetcher, layout source.Layout, onChange OnChange, opts ...Option) *Watcher {
	if layout == nil {
		layout = source.DefaultLayout()
	}
	w := &Watcher{
		fetcher:  f,
		layout:   layout,
		interval: DefaultInterval,
		onChange: onChange,
		logger:   zap.NewNop(),
		now:      time.Now,
		state:    make(map[string]State),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Prime records the current state without reporting changes.
func (w *Watcher) Prime(ctx context.Context) error {
	_, err := w.scan(ctx)
	return err
}

// Poll compares every reference with the previous observation. The first
// poll of an unprimed watcher reports every existing reference.
func (w *Watcher) Poll(ctx context.Context) ([]Change, error) {
	return w.scan(ctx)
}

func (w *Watcher) scan(ctx context.Context) ([]Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := w.now().UTC().Format(time.RFC3339)
	var changes []Change
	for _, k := range records.Kinds() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := w.layout.Ref(k)
		current := State{Ref: ref, LastSeen: seen}

		data, err := w.fetcher.Fetch(ctx, ref)
		switch {
		case err == nil:
			current.Exists = true
			current.Hash = hashBytes(data)
		case errors.Is(err, source.ErrNotFound):
		default:
			// keep the previous state; a transient error is not a change
			w.logger.Warn("watch fetch failed", zap.String("ref", ref), zap.Error(err))
			continue
		}

		prev, known := w.state[ref]
		w.state[ref] = current
		switch {
		case !known && !current.Exists:
		case !known || prev.Exists != current.Exists || prev.Hash != current.Hash:
			changes = append(changes, Change{Kind: k.String(), Ref: ref, Deleted: known && prev.Exists && !current.Exists})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Ref < changes[j].Ref })
	return changes, nil
}

// States returns a copy of the tracked state sorted by reference.
func (w *Watcher) States() []State {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]State, 0, len(w.state))
	for _, s := range w.state {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

// Run primes the watcher and polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prime(ctx); err != nil {
		return fmt.Errorf("prime watcher: %w", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	changes, err := w.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("watch poll failed", zap.Error(err))
		}
		return
	}
	if len(changes) == 0 || w.onChange == nil {
		return
	}
	refs := make([]string, 0, len(changes))
	for _, c := range changes {
		refs = append(refs, c.Ref)
	}
	w.logger.Info("sources changed", zap.Strings("refs", refs))
	if err := w.onChange(ctx, changes); err != nil {
		w.logger.Error("reload after change failed", zap.Error(err))
	}
}

// ReloadOnChange returns an OnChange that invalidates the changed
// references in cache (when non-nil), loads through loader and installs the
// result in h. Unchanged references are served from the cache.
func ReloadOnChange(loader *source.Loader, cache *source.Cache, h *records.Holder, logger *zap.Logger) OnChange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, changes []Change) error {
		if cache != nil {
			for _, c := range changes {
				cache.Invalidate(c.Ref)
			}
		}
		store, report, err := loader.Load(ctx)
		if err != nil {
			return err
		}
		h.Replace(store)
		logger.Info("store reloaded",
			zap.Int("changes", len(changes)),
			zap.Int("records", report.Records()),
		)
		return nil
	}
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
