package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	asOf := time.Date(2026, 3, 17, 15, 0, 0, 0, time.UTC)
	path := SnapshotPathForDate(dir, asOf)
	if filepath.Base(path) != "2026-03-17.json" {
		t.Fatalf("path = %s", path)
	}

	snap := Snapshot{
		AsOf: "2026-03-17",
		Points: []MetricPoint{
			{Key: "otif_rate", Value: 33.3, Unit: "pct", Source: "engine", Timestamp: AsOfTimestamp(asOf)},
			{Key: "backorder_rate", Value: 5, Unit: "pct", Source: "engine", Timestamp: AsOfTimestamp(asOf)},
		},
	}
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot returned error: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot returned error: %v", err)
	}
	if loaded.SchemaVersion != SnapshotSchemaVersion || len(loaded.Points) != 2 || loaded.Points[0].Key != "backorder_rate" {
		t.Fatalf("loaded = %#v", loaded)
	}
	if AsOfTimestamp(asOf) != "2026-03-17T00:00:00Z" {
		t.Fatalf("AsOfTimestamp = %s", AsOfTimestamp(asOf))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadSnapshotRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"version.json": `{"schema_version": 9, "as_of": "2026-03-17", "points": []}`,
		"asof.json":    `{"schema_version": 1, "as_of": "", "points": []}`,
		"unknown.json": `{"schema_version": 1, "as_of": "2026-03-17", "points": [], "extra": 1}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadSnapshot(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := WriteSnapshot("", Snapshot{AsOf: "x"}); err == nil {
		t.Fatalf("expected path error")
	}
	if err := WriteSnapshot(filepath.Join(dir, "x.json"), Snapshot{}); err == nil {
		t.Fatalf("expected as_of error")
	}
}

func TestLatestSnapshotPaths(t *testing.T) {
	dir := t.TempDir()
	if _, err := LatestSnapshotPath(dir); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	for _, name := range []string{"2026-03-01.json", "2026-02-15.json", "2026-03-10.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	latest, err := LatestSnapshotPath(dir)
	if err != nil || filepath.Base(latest) != "2026-03-10.json" {
		t.Fatalf("latest = %s, %v", latest, err)
	}
	prev, last, err := LatestTwoSnapshotPaths(dir)
	if err != nil || filepath.Base(prev) != "2026-03-01.json" || filepath.Base(last) != "2026-03-10.json" {
		t.Fatalf("latest two = %s, %s, %v", prev, last, err)
	}
}
