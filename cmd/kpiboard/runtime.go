package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"kpiboard/internal/audit"
	"kpiboard/internal/config"
	"kpiboard/internal/filter"
	"kpiboard/internal/kpi"
	"kpiboard/internal/logging"
	"kpiboard/internal/records"
	"kpiboard/internal/source"
	"kpiboard/internal/workspace"
)

// runtime is the wiring shared by every command that reads records.
type runtime struct {
	ws       *workspace.Workspace
	cfg      config.Config
	logger   *zap.Logger
	audit    *audit.Logger
	upstream source.Fetcher
	cache    *source.Cache
	layout   source.Layout
	loader   *source.Loader
	holder   *records.Holder
	engine   *kpi.Engine
	closeFn  func() error
}

func openRuntime(ctx context.Context, workspacePath string) (*runtime, error) {
	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(ws)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	layout, err := cfg.SourceLayout()
	if err != nil {
		return nil, err
	}
	upstream, closeFn, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	cache, err := source.NewCache(upstream, cfg.CacheSize)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	loader := source.NewLoader(cache, layout,
		source.WithLogger(logger),
		source.WithConcurrency(cfg.Concurrency),
	)
	holder := records.NewHolder(nil)

	return &runtime{
		ws:       ws,
		cfg:      cfg,
		logger:   logger,
		audit:    auditLogger(ws),
		upstream: upstream,
		cache:    cache,
		layout:   layout,
		loader:   loader,
		holder:   holder,
		engine:   kpi.NewEngine(holder),
		closeFn:  closeFn,
	}, nil
}

func loadConfig(ws *workspace.Workspace) (config.Config, error) {
	cfg, err := config.LoadWithEnv(ws.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := resolveConfigPaths(ws, &cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func auditLogger(ws *workspace.Workspace) *audit.Logger {
	if env := strings.TrimSpace(os.Getenv("KPIBOARD_AUDIT_DB")); env != "" {
		return audit.NewLogger(env)
	}
	return audit.NewLogger(ws.AuditDBPath)
}

// resolveConfigPaths anchors relative file paths at the workspace root.
func resolveConfigPaths(ws *workspace.Workspace, cfg *config.Config) error {
	if cfg.Source.Driver == "" || strings.EqualFold(cfg.Source.Driver, source.DriverFile) {
		root := cfg.Source.File.Root
		if strings.TrimSpace(root) == "" {
			root = ws.DataDir
		}
		resolved, err := ws.ResolvePath(root)
		if err != nil {
			return fmt.Errorf("resolve data root: %w", err)
		}
		cfg.Source.File.Root = resolved
	}
	if strings.TrimSpace(cfg.Targets) == "" {
		cfg.Targets = ws.TargetsPath
		return nil
	}
	resolved, err := ws.ResolvePath(cfg.Targets)
	if err != nil {
		return fmt.Errorf("resolve targets: %w", err)
	}
	cfg.Targets = resolved
	return nil
}

// load fetches every kind, installs the store and records the outcome.
func (r *runtime) load(ctx context.Context) (source.Report, error) {
	store, report, err := r.loader.Load(ctx)
	if err != nil {
		return report, err
	}
	r.holder.Replace(store)

	failed := make([]string, 0)
	for _, k := range report.Failed() {
		failed = append(failed, k.Kind)
	}
	payload := map[string]any{
		"workspace": r.ws.Root,
		"driver":    r.sourceDriver(),
		"records":   report.Records(),
		"degraded":  failed,
		"duration":  report.Duration,
	}
	if err := r.audit.LogEvent("cli", audit.EventStoreLoaded, payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	return report, nil
}

func (r *runtime) sourceDriver() string {
	if r.cfg.Source.Driver == "" {
		return source.DriverFile
	}
	return strings.ToLower(r.cfg.Source.Driver)
}

// filters returns every configured preset, normalized.
func (r *runtime) filters() (map[string]filter.Filter, error) {
	out := make(map[string]filter.Filter, len(r.cfg.Filters))
	for _, name := range r.cfg.FilterNames() {
		f, err := r.cfg.Filter(name)
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	return out, nil
}

func (r *runtime) Close() error {
	_ = r.logger.Sync()
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// filterFlags are the query flags shared by kpi and summary.
type filterFlags struct {
	preset    *string
	site      *string
	category  *string
	dateRange *string
}

func addFilterFlags(fs *flag.FlagSet) filterFlags {
	return filterFlags{
		preset:    fs.String("preset", config.DefaultFilterName, "Filter preset from kpiboard.yml"),
		site:      fs.String("site", "", "Site code, or \"all\" (default: preset)"),
		category:  fs.String("category", "", "Category, or \"all\" (default: preset)"),
		dateRange: fs.String("range", "", "Date range: 30d, 90d or 1y (default: preset)"),
	}
}

// resolve starts from the preset and overlays any explicit flag.
func (ff filterFlags) resolve(cfg config.Config) (string, filter.Filter, error) {
	name := strings.TrimSpace(*ff.preset)
	if name == "" {
		name = config.DefaultFilterName
	}
	f, err := cfg.Filter(name)
	if err != nil {
		return "", filter.Filter{}, err
	}
	if v := strings.TrimSpace(*ff.site); v != "" {
		f.Site = v
	}
	if v := strings.TrimSpace(*ff.category); v != "" {
		f.Category = v
	}
	if v := strings.TrimSpace(*ff.dateRange); v != "" {
		f.DateRange = filter.DateRange(v)
	}
	f, err = config.Normalize(f)
	if err != nil {
		return "", filter.Filter{}, fmt.Errorf("parse --range: %w", err)
	}
	return name, f, nil
}
