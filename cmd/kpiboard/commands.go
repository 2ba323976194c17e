package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"kpiboard/internal/audit"
	"kpiboard/internal/kpi"
	"kpiboard/internal/metrics"
)

func runKPI(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("kpi", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	ff := addFilterFlags(fs)
	format := fs.String("format", "json", "Output format: json or table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "json" && *format != "table" {
		return fmt.Errorf("unknown format: %s", *format)
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, workspacePath)
	if err != nil {
		return err
	}
	defer rt.Close()

	preset, f, err := ff.resolve(rt.cfg)
	if err != nil {
		return err
	}
	if _, err := rt.load(ctx); err != nil {
		return err
	}
	set := rt.engine.Compute(f)

	payload := map[string]any{
		"preset":   preset,
		"filter":   f,
		"window":   set.Window,
		"orders":   set.OrderCount,
		"store_at": set.StoreAt,
	}
	if err := rt.audit.LogEvent("cli", audit.EventKPIComputed, payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	if *format == "table" {
		return writeKPITable(os.Stdout, set)
	}
	return writeJSON(os.Stdout, set)
}

func writeKPITable(w io.Writer, set *kpi.Set) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KPI\tVALUE\tUNIT")
	for _, d := range kpi.Definitions() {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", d.Name, d.Value(set), d.Unit)
	}
	return tw.Flush()
}

func runSummary(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	ff := addFilterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, workspacePath)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, f, err := ff.resolve(rt.cfg)
	if err != nil {
		return err
	}
	if _, err := rt.load(ctx); err != nil {
		return err
	}
	set, summary := rt.engine.Summarize(f)
	return writeJSON(os.Stdout, map[string]any{
		"kpis":    set,
		"summary": summary,
	})
}

func runSnapshot(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asOfStr := fs.String("as-of", "", "As-of date (YYYY-MM-DD, default: today UTC)")
	snapshotsDir := fs.String("snapshots-dir", "", "Directory to write snapshots (default: <workspace>/metrics/snapshots)")
	manualPath := fs.String("manual", "", "Path to manual metrics YAML (default: <workspace>/metrics/manual.yml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if *asOfStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *asOfStr, time.UTC)
		if err != nil {
			return fmt.Errorf("parse --as-of: %w", err)
		}
		asOf = parsed.UTC().Truncate(24 * time.Hour)
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, workspacePath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if *snapshotsDir == "" {
		*snapshotsDir = rt.ws.SnapshotsDir
	} else if *snapshotsDir, err = rt.ws.ResolvePath(*snapshotsDir); err != nil {
		return fmt.Errorf("resolve --snapshots-dir: %w", err)
	}
	if *manualPath == "" {
		*manualPath = filepath.Join(rt.ws.MetricsDir, "manual.yml")
	} else if *manualPath, err = rt.ws.ResolvePath(*manualPath); err != nil {
		return fmt.Errorf("resolve --manual: %w", err)
	}

	filters, err := rt.filters()
	if err != nil {
		return err
	}
	report, err := rt.load(ctx)
	if err != nil {
		return err
	}

	providers := []metrics.Provider{
		&metrics.KPIProvider{Engine: rt.engine, Filters: filters, AsOf: asOf},
		&metrics.ManualProvider{Path: *manualPath, AsOf: asOf},
	}
	points, err := metrics.CollectAll(ctx, providers)
	if err != nil {
		_ = rt.audit.LogEvent("cli", audit.EventSnapshotWritten, map[string]any{
			"error": err.Error(),
		})
		return err
	}

	snapshotPath := metrics.SnapshotPathForDate(*snapshotsDir, asOf)
	snapshot := metrics.Snapshot{
		AsOf:          asOf.Format("2006-01-02"),
		StoreLoadedAt: report.LoadedAt.UTC().Format(time.RFC3339),
		Points:        points,
	}
	if err := metrics.WriteSnapshot(snapshotPath, snapshot); err != nil {
		_ = rt.audit.LogEvent("cli", audit.EventSnapshotWritten, map[string]any{
			"snapshot_path": snapshotPath,
			"error":         err.Error(),
		})
		return err
	}

	payload := map[string]any{
		"snapshot_path": snapshotPath,
		"point_count":   len(points),
		"presets":       rt.cfg.FilterNames(),
	}
	if err := rt.audit.LogEvent("cli", audit.EventSnapshotWritten, payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	fmt.Fprintf(os.Stdout, "Wrote snapshot: %s\n", snapshotPath)
	return nil
}

func runDiff(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fromPath := fs.String("from", "", "Older snapshot (default: second latest)")
	toPath := fs.String("to", "", "Newer snapshot (default: latest)")
	jsonOut := fs.Bool("json", false, "Print changed series as JSON instead of a unified diff")
	epsilon := fs.Float64("epsilon", 1e-9, "Smallest change reported with --json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	from, to := *fromPath, *toPath
	switch {
	case from == "" && to == "":
		from, to, err = metrics.LatestTwoSnapshotPaths(ws.SnapshotsDir)
		if err != nil {
			return err
		}
	case from == "" || to == "":
		return fmt.Errorf("--from and --to must be given together")
	default:
		if from, err = ws.ResolvePath(from); err != nil {
			return fmt.Errorf("resolve --from: %w", err)
		}
		if to, err = ws.ResolvePath(to); err != nil {
			return fmt.Errorf("resolve --to: %w", err)
		}
	}

	older, err := metrics.LoadSnapshot(from)
	if err != nil {
		return err
	}
	newer, err := metrics.LoadSnapshot(to)
	if err != nil {
		return err
	}

	if *jsonOut {
		deltas := metrics.CompareSnapshots(older, newer, *epsilon)
		if deltas == nil {
			deltas = []metrics.Delta{}
		}
		return writeJSON(os.Stdout, deltas)
	}
	diff, err := metrics.DiffSnapshots(older, newer, filepath.Base(from), filepath.Base(to))
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(os.Stdout, "No changes.")
		return nil
	}
	_, err = io.WriteString(os.Stdout, diff)
	return err
}

func runScore(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	snapshotPath := fs.String("snapshot", "", "Path to snapshot JSON (default: latest in metrics/snapshots)")
	targetsPath := fs.String("targets", "", "Path to targets YAML (default: config targets)")
	output := fs.String("output", "", "Output report path (default: <workspace>/metrics/scores/score_<as-of>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}
	cfg, err := loadConfig(ws)
	if err != nil {
		return err
	}
	if *targetsPath == "" {
		*targetsPath = cfg.Targets
	} else if *targetsPath, err = ws.ResolvePath(*targetsPath); err != nil {
		return fmt.Errorf("resolve --targets: %w", err)
	}

	logger := auditLogger(ws)
	startSnapshot := *snapshotPath
	if startSnapshot == "" {
		startSnapshot = "latest"
	}
	finish := func(payload map[string]any, err error) error {
		if err != nil {
			payload["error"] = err.Error()
		}
		_ = logger.LogEvent("cli", audit.EventTargetsScored, payload)
		return err
	}

	path := *snapshotPath
	if path == "" {
		path, err = metrics.LatestSnapshotPath(ws.SnapshotsDir)
		if err != nil {
			return finish(map[string]any{"snapshots_dir": ws.SnapshotsDir}, err)
		}
	} else if path, err = ws.ResolvePath(path); err != nil {
		return finish(map[string]any{"snapshot": startSnapshot}, fmt.Errorf("resolve --snapshot: %w", err))
	}

	snapshot, err := metrics.LoadSnapshot(path)
	if err != nil {
		return finish(map[string]any{"snapshot": path}, err)
	}
	targets, err := metrics.LoadTargets(*targetsPath)
	if err != nil {
		return finish(map[string]any{"targets": *targetsPath}, err)
	}
	report, err := metrics.ScoreKPIs(targets, snapshot, path)
	if err != nil {
		return finish(map[string]any{"snapshot": path}, err)
	}

	outPath := *output
	if outPath == "" {
		outPath = filepath.Join(ws.MetricsDir, "scores", fmt.Sprintf("score_%s.json", report.AsOf))
	} else if outPath, err = ws.ResolvePath(outPath); err != nil {
		return fmt.Errorf("resolve --output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return finish(map[string]any{"output": outPath}, fmt.Errorf("ensure scores dir: %w", err))
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return finish(map[string]any{"output": outPath}, fmt.Errorf("marshal score report: %w", err))
	}
	data = append(data, '\n')
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return finish(map[string]any{"output": outPath}, fmt.Errorf("write score report: %w", err))
	}

	_ = finish(map[string]any{
		"output":  outPath,
		"as_of":   report.AsOf,
		"targets": len(report.Results),
		"missing": len(report.MissingKPIs),
	}, nil)

	fmt.Fprintf(os.Stdout, "Wrote score report: %s\n", outPath)
	return nil
}

func runAudit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("limit", 20, "Number of events to show, newest first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	events, err := auditLogger(ws).Recent(*limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTS\tACTOR\tTYPE")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.TS.Format(time.RFC3339), e.Actor, e.Type)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
