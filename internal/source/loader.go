package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kpiboard/internal/records"
)

// DefaultConcurrency bounds parallel fetches per load.
const DefaultConcurrency = 4

// KindReport describes the outcome for one kind.
type KindReport struct {
	Kind    string `json:"kind"`
	Ref     string `json:"ref"`
	Records int    `json:"records"`
	Bytes   int    `json:"bytes"`
	Missing bool   `json:"missing,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report summarises one load. Kinds follow records.Kinds order.
type Report struct {
	LoadedAt time.Time    `json:"loaded_at"`
	Duration string       `json:"duration"`
	Kinds    []KindReport `json:"kinds"`
}

// Failed returns the kinds that degraded to an empty collection.
func (r Report) Failed() []KindReport {
	var out []KindReport
	for _, k := range r.Kinds {
		if k.Missing || k.Error != "" {
			out = append(out, k)
		}
	}
	return out
}

// Records totals the loaded records across kinds.
func (r Report) Records() int {
	total := 0
	for _, k := range r.Kinds {
		total += k.Records
	}
	return total
}

// Loader fetches every kind of a layout and builds a Store.
type Loader struct {
	fetcher Fetcher
	layout  Layout
	logger  *zap.Logger
	limit   int
	now     func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for per-kind warnings.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithConcurrency bounds parallel fetches.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithClock overrides the load timestamp source.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoader returns a loader for layout. A nil layout uses DefaultLayout.
func NewLoader(f Fetcher, layout Layout, opts ...LoaderOption) *Loader {
	if layout == nil {
		layout = DefaultLayout()
	}
	l := &Loader{
		fetcher: f,
		layout:  layout,
		logger:  zap.NewNop(),
		limit:   DefaultConcurrency,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Layout returns the loader's layout.
func (l *Loader) Layout() Layout { return l.layout }

// Fetcher returns the loader's fetcher.
func (l *Loader) Fetcher() Fetcher { return l.fetcher }

// Load fetches and decodes every kind. A kind whose fetch or decode fails
// becomes an empty collection and is recorded in the report; only context
// cancellation fails the load as a whole.
func (l *Loader) Load(ctx context.Context) (*records.Store, Report, error) {
	if l.fetcher == nil {
		return nil, Report{}, fmt.Errorf("load: no fetcher configured")
	}
	start := l.now()
	kinds := records.Kinds()
	reports := make([]KindReport, len(kinds))
	var c records.Collections

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)
	for i, k := range kinds {
		g.Go(func() error {
			// each goroutine writes only its own kind's field of c
			reports[i] = l.loadKind(gctx, &c, k)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, fmt.Errorf("load sources: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, fmt.Errorf("load sources: %w", err)
	}

	loadedAt := l.now()
	report := Report{
		LoadedAt: loadedAt,
		Duration: loadedAt.Sub(start).String(),
		Kinds:    reports,
	}
	l.logger.Info("sources loaded",
		zap.Int("records", report.Records()),
		zap.Int("failed_kinds", len(report.Failed())),
		zap.String("duration", report.Duration),
	)
	return records.NewStore(c, loadedAt), report, nil
}

func (l *Loader) loadKind(ctx context.Context, c *records.Collections, k records.Kind) KindReport {
	ref := l.layout.Ref(k)
	rep := KindReport{Kind: k.String(), Ref: ref}
	log := l.logger.With(zap.String("kind", rep.Kind), zap.String("ref", ref))

	data, err := l.fetcher.Fetch(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			rep.Missing = true
			log.Warn("source missing; using empty collection")
			return rep
		}
		rep.Error = err.Error()
		log.Warn("source fetch failed; using empty collection", zap.Error(err))
		return rep
	}
	rep.Bytes = len(data)
	n, err := records.DecodeInto(c, k, data)
	if err != nil {
		rep.Error = err.Error()
		log.Warn("source decode failed; using empty collection", zap.Error(err))
		return rep
	}
	rep.Records = n
	log.Debug("source loaded", zap.Int("records", n), zap.Int("bytes", rep.Bytes))
	return rep
}

// Reload drops cached payloads, loads a fresh store and installs it in h.
// On failure h keeps its current store.
func (l *Loader) Reload(ctx context.Context, h *records.Holder) (Report, error) {
	if cache, ok := l.fetcher.(*Cache); ok {
		cache.Purge()
	}
	store, report, err := l.Load(ctx)
	if err != nil {
		return report, err
	}
	h.Replace(store)
	return report, nil
}
