package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kpiboard/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")

	args := []string{
		"init",
		"--workspace", workspaceRoot,
	}
	stdout, stderr, code := harness.Run(t, binPath, runDir, args)
	if code != 0 {
		t.Fatalf("kpiboard init exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	paths := []string{
		filepath.Join(workspaceRoot, "kpiboard.yml"),
		filepath.Join(workspaceRoot, "data"),
		filepath.Join(workspaceRoot, "audit"),
		filepath.Join(workspaceRoot, "metrics", "snapshots"),
		filepath.Join(workspaceRoot, "metrics", "targets.yml"),
		filepath.Join(workspaceRoot, "metrics", "manual.yml"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing init path %s: %v", path, err)
		}
	}

	cfg, err := os.ReadFile(filepath.Join(workspaceRoot, "kpiboard.yml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(cfg), "driver: file") {
		t.Fatalf("expected file driver in generated config:\n%s", cfg)
	}

	auditPath := filepath.Join(workspaceRoot, "audit", "audit.sqlite")
	requireAuditEvents(t, auditPath, []string{
		"workspace_init_started",
		"workspace_init_finished",
	})

	// A second init must not overwrite edited files.
	if err := os.WriteFile(filepath.Join(workspaceRoot, "metrics", "targets.yml"), []byte("targets: []\n"), 0o644); err != nil {
		t.Fatalf("edit targets: %v", err)
	}
	stdout, stderr, code = harness.Run(t, binPath, runDir, args)
	if code != 0 {
		t.Fatalf("kpiboard init (rerun) exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	data, err := os.ReadFile(filepath.Join(workspaceRoot, "metrics", "targets.yml"))
	if err != nil {
		t.Fatalf("read targets: %v", err)
	}
	if string(data) != "targets: []\n" {
		t.Fatalf("init overwrote targets.yml:\n%s", data)
	}
}
