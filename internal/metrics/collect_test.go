package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kpiboard/internal/filter"
	"kpiboard/internal/kpi"
	"kpiboard/internal/records"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }
func (failingProvider) Collect(context.Context) ([]MetricPoint, error) {
	return nil, errors.New("unavailable")
}

func TestKPIProviderCollect(t *testing.T) {
	p := &KPIProvider{
		Engine: testEngine(),
		Filters: map[string]filter.Filter{
			"default":  filter.Default(),
			"jamshoro": {Site: "PK-JAM", DateRange: filter.Range30d},
		},
		AsOf: exporterNow,
	}
	points, err := CollectAll(context.Background(), []Provider{p, nil})
	if err != nil {
		t.Fatalf("CollectAll returned error: %v", err)
	}
	if got, want := len(points), 2*len(kpi.Names()); got != want {
		t.Fatalf("points = %d, want %d", got, want)
	}
	idx := (&Snapshot{Points: points}).Index()
	jam, ok := idx["otif_rate{category=all,preset=jamshoro,range=30d,site=PK-JAM}"]
	if !ok {
		t.Fatalf("jamshoro otif series missing")
	}
	if jam.Value != 50 || jam.Unit != "pct" || jam.Source != SourceEngine || jam.Timestamp != "2026-03-20T00:00:00Z" {
		t.Fatalf("jamshoro otif = %#v", jam)
	}
}

func TestKPIProviderAnchorsWindowAtAsOf(t *testing.T) {
	store := records.NewStore(records.Collections{
		Orders: []records.Order{
			{Site: "PK-JAM", Month: "2025-01", OrderFulfilled: true, OnTime: true},
			{Site: "SK-LEV", Month: "2025-01", OrderFulfilled: true},
			{Site: "SK-LEV", Month: "2026-03"},
		},
	}, exporterNow)
	engine := kpi.NewEngine(records.NewHolder(store), kpi.WithClock(func() time.Time { return exporterNow }))
	asOf := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	p := &KPIProvider{Engine: engine, Filters: map[string]filter.Filter{"default": filter.Default()}, AsOf: asOf}
	points, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	idx := (&Snapshot{Points: points}).Index()
	count := idx["order_count{category=all,preset=default,range=90d,site=all}"]
	if count.Value != 2 {
		t.Fatalf("order_count as of %s = %v, want 2", asOf.Format("2006-01-02"), count.Value)
	}
	if count.Timestamp != "2025-01-15T00:00:00Z" {
		t.Fatalf("timestamp = %q", count.Timestamp)
	}
	if otif := idx["otif_rate{category=all,preset=default,range=90d,site=all}"]; otif.Value != 50 {
		t.Fatalf("otif_rate = %v, want 50", otif.Value)
	}

	// Without an as-of date the engine clock decides the window.
	current, err := (&KPIProvider{Engine: engine}).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	idx = (&Snapshot{Points: current}).Index()
	if got := idx["order_count{category=all,preset=default,range=90d,site=all}"].Value; got != 1 {
		t.Fatalf("current order_count = %v, want 1", got)
	}
}

func TestCollectAllWrapsProviderError(t *testing.T) {
	_, err := CollectAll(context.Background(), []Provider{failingProvider{}})
	if err == nil || err.Error() != "broken provider: unavailable" {
		t.Fatalf("err = %v", err)
	}
	if _, err := (&KPIProvider{}).Collect(context.Background()); err == nil {
		t.Fatalf("expected missing engine error")
	}
}

func TestManualProvider(t *testing.T) {
	dir := t.TempDir()
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	missing := &ManualProvider{Path: filepath.Join(dir, "none.yml"), AsOf: asOf}
	if points, err := missing.Collect(context.Background()); err != nil || points != nil {
		t.Fatalf("missing file = %v, %v", points, err)
	}

	path := filepath.Join(dir, "manual.yml")
	content := `metrics:
  - key: customer_complaints
    value: 4
    unit: count
    preset: default
    evidence: [qa/complaints-2026-03.pdf]
    dimensions:
      site: PK-JAM
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	points, err := (&ManualProvider{Path: path, AsOf: asOf}).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(points) != 1 || points[0].Source != SourceManual || points[0].Series() != "customer_complaints{preset=default,site=PK-JAM}" {
		t.Fatalf("points = %#v", points)
	}

	shadow := filepath.Join(dir, "shadow.yml")
	if err := os.WriteFile(shadow, []byte("- key: otif_rate\n  value: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&ManualProvider{Path: shadow}).Collect(context.Background()); err == nil {
		t.Fatalf("expected shadowing error")
	}
}
