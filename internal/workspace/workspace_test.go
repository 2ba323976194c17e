package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAndEnsureDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if ws.ConfigPath != filepath.Join(root, "kpiboard.yml") {
		t.Fatalf("ConfigPath = %q", ws.ConfigPath)
	}
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs returned error: %v", err)
	}
	for _, dir := range []string{ws.DataDir, ws.SnapshotsDir, ws.AuditDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestResolveRejectsMissingOrFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if _, err := Resolve(filepath.Join(root, "missing")); err == nil {
		t.Fatalf("expected error for missing root")
	}
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Resolve(file); err == nil {
		t.Fatalf("expected error for file root")
	}
	if _, err := Resolve("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	got, err := ws.ResolvePath("data")
	if err != nil || got != filepath.Join(root, "data") {
		t.Fatalf("ResolvePath(data) = %q, %v", got, err)
	}
	abs := filepath.Join(root, "elsewhere")
	if got, _ := ws.ResolvePath(abs); got != abs {
		t.Fatalf("ResolvePath(abs) = %q", got)
	}
	if got, _ := ws.ResolvePath(""); got != "" {
		t.Fatalf("ResolvePath(empty) = %q", got)
	}
}
