package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kpiboard/internal/audit"
	"kpiboard/internal/config"
	"kpiboard/internal/workspace"
)

const appName = "kpiboard"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: operational KPI analytics\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init      Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  kpi       Compute the KPI set for a filter")
		fmt.Fprintln(os.Stderr, "  summary   Compute dashboard summaries for a filter")
		fmt.Fprintln(os.Stderr, "  snapshot  Write a KPI snapshot for every filter preset")
		fmt.Fprintln(os.Stderr, "  diff      Compare two KPI snapshots")
		fmt.Fprintln(os.Stderr, "  score     Score KPI targets against a snapshot")
		fmt.Fprintln(os.Stderr, "  serve     Serve KPIs over HTTP and Prometheus")
		fmt.Fprintln(os.Stderr, "  audit     Show recent audit events")
		fmt.Fprintln(os.Stderr, "  help      Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	commands := map[string]func([]string, string) error{
		"init":     runInit,
		"kpi":      runKPI,
		"summary":  runSummary,
		"snapshot": runSnapshot,
		"diff":     runDiff,
		"score":    runScore,
		"serve":    runServe,
		"audit":    runAudit,
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err := run(args[1:], workspacePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

func resolveWorkspace(root string) (*workspace.Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = strings.TrimSpace(os.Getenv("KPIBOARD_WORKSPACE"))
	}
	if root == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	return workspace.Resolve(root)
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	template := fs.String("template", "minimal", "Workspace template (default: minimal)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *template != "minimal" {
		return fmt.Errorf("unknown template: %s", *template)
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	startPayload := map[string]any{
		"workspace": ws.Root,
		"template":  *template,
	}
	if err := logger.LogEvent("cli", "workspace_init_started", startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	var finishErr error
	defer func() {
		finishPayload := map[string]any{
			"workspace": ws.Root,
			"template":  *template,
		}
		if finishErr != nil {
			finishPayload["error"] = finishErr.Error()
		}
		_ = logger.LogEvent("cli", "workspace_init_finished", finishPayload)
	}()

	if err := ws.EnsureDirs(); err != nil {
		finishErr = err
		return finishErr
	}

	cfgData, err := config.Marshal(config.Default())
	if err != nil {
		finishErr = err
		return finishErr
	}
	files := []struct {
		path     string
		contents string
	}{
		{ws.ConfigPath, string(cfgData)},
		{ws.TargetsPath, minimalTargetsTemplate},
		{filepath.Join(ws.MetricsDir, "manual.yml"), minimalManualMetricsTemplate},
	}
	for _, f := range files {
		if err := writeFileIfMissing(f.path, f.contents); err != nil {
			finishErr = err
			return finishErr
		}
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  copy JSONL record files under %s\n", ws.DataDir)
	fmt.Fprintf(os.Stdout, "  %s kpi --workspace %s\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s snapshot --workspace %s\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s score --workspace %s\n", appName, ws.Root)
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

const minimalTargetsTemplate = `targets:
  - id: otif
    kpi: otif_rate
    description: Orders delivered in full and on time.
    baseline: 80
    target: 95
  - id: batch-release
    kpi: batch_release_rate
    description: Batches passing QA on first review.
    baseline: 90
    target: 98
  - id: lab-tat
    kpi: avg_lab_tat_days
    description: Lab turnaround time in days.
    baseline: 7
    target: 4
`

const minimalManualMetricsTemplate = `metrics:
  - key: manual.customer_complaints
    value: 0
    unit: count
    evidence:
      - init:seed
`
