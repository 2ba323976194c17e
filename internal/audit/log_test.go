package audit

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestLogEventAndRecent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit", "audit.sqlite")
	l := NewLogger(path)
	ts := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return ts }

	if err := l.LogEvent("cli", EventStoreLoaded, map[string]any{"records": 12}); err != nil {
		t.Fatalf("LogEvent returned error: %v", err)
	}
	if err := l.LogEvent("cli", EventKPIComputed, map[string]any{"filter": "default"}); err != nil {
		t.Fatalf("LogEvent returned error: %v", err)
	}

	events, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != EventKPIComputed || events[1].Type != EventStoreLoaded {
		t.Fatalf("events not newest first: %s, %s", events[0].Type, events[1].Type)
	}
	var payload map[string]int
	if err := json.Unmarshal(events[1].Payload, &payload); err != nil || payload["records"] != 12 {
		t.Fatalf("payload = %s, err %v", events[1].Payload, err)
	}
	if !events[1].TS.Equal(ts) {
		t.Fatalf("ts = %v, want %v", events[1].TS, ts)
	}
}

func TestRecentMissingDB(t *testing.T) {
	t.Parallel()

	events, err := NewLogger(filepath.Join(t.TempDir(), "none.sqlite")).Recent(5)
	if err != nil || events != nil {
		t.Fatalf("Recent = %v, %v; want nil, nil", events, err)
	}
}
