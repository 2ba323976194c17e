package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kpiboard/internal/audit"
	"kpiboard/internal/config"
	"kpiboard/internal/filter"
	"kpiboard/internal/kpi"
	"kpiboard/internal/metrics"
	"kpiboard/internal/watch"
)

const shutdownTimeout = 5 * time.Second

func runServe(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "Listen address (default: config serve.addr)")
	interval := fs.Duration("reload-interval", -1, "Source poll interval, 0 disables (default: config serve.reload_interval)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, workspacePath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if *addr == "" {
		*addr = rt.cfg.Serve.Addr
	}
	if *interval < 0 {
		*interval = rt.cfg.Serve.ReloadInterval
	}
	filters, err := rt.filters()
	if err != nil {
		return err
	}
	if _, err := rt.load(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewExporter(rt.engine, filters),
	)

	handlers := &api{engine: rt.engine, cfg: rt.cfg, logger: rt.logger}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	handlers.register(mux)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.logger.Info("serving", zap.String("addr", *addr), zap.Duration("reload_interval", *interval))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if *interval > 0 {
		reload := watch.ReloadOnChange(rt.loader, rt.cache, rt.holder, rt.logger)
		onChange := func(ctx context.Context, changes []watch.Change) error {
			if err := reload(ctx, changes); err != nil {
				return err
			}
			refs := make([]string, 0, len(changes))
			for _, c := range changes {
				refs = append(refs, c.Ref)
			}
			if err := rt.audit.LogEvent("serve", audit.EventStoreReloaded, map[string]any{"refs": refs}); err != nil {
				rt.logger.Warn("audit log failed", zap.Error(err))
			}
			return nil
		}
		w := watch.New(rt.upstream, rt.layout, onChange,
			watch.WithInterval(*interval),
			watch.WithLogger(rt.logger),
		)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err = g.Wait()
	rt.logger.Info("server stopped")
	return err
}

// api serves JSON views of the engine.
type api struct {
	engine *kpi.Engine
	cfg    config.Config
	logger *zap.Logger
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/kpi", a.handleKPI)
	mux.HandleFunc("/api/summary", a.handleSummary)
	mux.HandleFunc("/api/definitions", a.handleDefinitions)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := a.engine.Holder().Load()
	a.respond(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"loaded_at": store.LoadedAt,
	})
}

func (a *api) handleKPI(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filterFrom(w, r)
	if !ok {
		return
	}
	a.respond(w, http.StatusOK, a.engine.Compute(f))
}

func (a *api) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filterFrom(w, r)
	if !ok {
		return
	}
	set, summary := a.engine.Summarize(f)
	a.respond(w, http.StatusOK, map[string]any{
		"kpis":    set,
		"summary": summary,
	})
}

func (a *api) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	type definition struct {
		Name string `json:"name"`
		Unit string `json:"unit"`
		Help string `json:"help"`
	}
	defs := kpi.Definitions()
	out := make([]definition, 0, len(defs))
	for _, d := range defs {
		out = append(out, definition{Name: d.Name, Unit: d.Unit, Help: d.Help})
	}
	a.respond(w, http.StatusOK, out)
}

// filterFrom reads ?preset=&site=&category=&range= over the named preset.
func (a *api) filterFrom(w http.ResponseWriter, r *http.Request) (filter.Filter, bool) {
	if r.Method != http.MethodGet {
		a.respond(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return filter.Filter{}, false
	}
	q := r.URL.Query()
	f, err := a.cfg.Filter(strings.TrimSpace(q.Get("preset")))
	if err != nil {
		a.respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return filter.Filter{}, false
	}
	if v := strings.TrimSpace(q.Get("site")); v != "" {
		f.Site = v
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		f.Category = v
	}
	if v := strings.TrimSpace(q.Get("range")); v != "" {
		f.DateRange = filter.DateRange(v)
	}
	f, err = config.Normalize(f)
	if err != nil {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return filter.Filter{}, false
	}
	return f, true
}

func (a *api) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := writeJSON(w, v); err != nil && a.logger != nil {
		a.logger.Warn("write response failed", zap.Error(err))
	}
}
