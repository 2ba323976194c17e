package integration_test

import (
	"encoding/json"
	"testing"

	"kpiboard/internal/audit"
)

const auditScanLimit = 500

func loadAuditEvents(t *testing.T, dbPath string) []audit.Event {
	t.Helper()
	events, err := audit.NewLogger(dbPath).Recent(auditScanLimit)
	if err != nil {
		t.Fatalf("read audit events from %s: %v", dbPath, err)
	}
	return events
}

func requireAuditEvents(t *testing.T, dbPath string, want []string) {
	t.Helper()
	types := make(map[string]int)
	for _, ev := range loadAuditEvents(t, dbPath) {
		types[ev.Type]++
	}
	for _, eventType := range want {
		if types[eventType] == 0 {
			t.Fatalf("missing audit event %s in %s", eventType, dbPath)
		}
	}
}

// latestAuditPayload decodes the payload of the newest event of eventType.
func latestAuditPayload(t *testing.T, dbPath, eventType string) map[string]any {
	t.Helper()
	for _, ev := range loadAuditEvents(t, dbPath) {
		if ev.Type != eventType {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("decode %s payload: %v", eventType, err)
		}
		return payload
	}
	t.Fatalf("no %s event in %s", eventType, dbPath)
	return nil
}
