package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kpiboard/internal/records"
	"kpiboard/internal/source"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPollDetectsChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	orders := filepath.Join(root, "supply", "orders.jsonl")
	writeFile(t, orders, `{"order_fulfilled":true}`+"\n")

	w := New(source.NewFileFetcher(root), nil, nil)
	ctx := context.Background()

	changes, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("first poll failed: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != "orders" {
		t.Fatalf("first poll changes = %#v, want orders only", changes)
	}

	changes, err = w.Poll(ctx)
	if err != nil || len(changes) != 0 {
		t.Fatalf("second poll = %#v, %v; want no changes", changes, err)
	}

	writeFile(t, orders, `{"order_fulfilled":false}`+"\n")
	labs := filepath.Join(root, "quality", "labs.jsonl")
	writeFile(t, labs, `{"tat":2}`+"\n")
	changes, err = w.Poll(ctx)
	if err != nil {
		t.Fatalf("third poll failed: %v", err)
	}
	if len(changes) != 2 || changes[0].Ref != "quality/labs.jsonl" || changes[1].Ref != "supply/orders.jsonl" {
		t.Fatalf("third poll changes = %#v", changes)
	}

	if err := os.Remove(labs); err != nil {
		t.Fatal(err)
	}
	changes, err = w.Poll(ctx)
	if err != nil || len(changes) != 1 || !changes[0].Deleted {
		t.Fatalf("deletion poll = %#v, %v", changes, err)
	}
}

func TestPrimeSuppressesInitialChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "supply", "orders.jsonl"), "{}\n")
	w := New(source.NewFileFetcher(root), nil, nil)
	if err := w.Prime(context.Background()); err != nil {
		t.Fatalf("Prime failed: %v", err)
	}
	changes, err := w.Poll(context.Background())
	if err != nil || len(changes) != 0 {
		t.Fatalf("poll after prime = %#v, %v", changes, err)
	}
	if states := w.States(); len(states) != len(records.Kinds()) {
		t.Fatalf("states = %d, want %d", len(states), len(records.Kinds()))
	}
}

func TestTransientErrorIsNotAChange(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	f := source.FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		if fail.Load() {
			return nil, os.ErrPermission
		}
		return []byte(ref), nil
	})
	core, logs := observer.New(zap.WarnLevel)
	w := New(f, nil, nil, WithLogger(zap.New(core)))
	if err := w.Prime(context.Background()); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	changes, err := w.Poll(context.Background())
	if err != nil || len(changes) != 0 {
		t.Fatalf("poll with errors = %#v, %v", changes, err)
	}
	if logs.FilterMessage("watch fetch failed").Len() != len(records.Kinds()) {
		t.Fatalf("expected one warning per kind, got %d", logs.Len())
	}
	fail.Store(false)
	if changes, _ := w.Poll(context.Background()); len(changes) != 0 {
		t.Fatalf("recovered poll = %#v, want no changes", changes)
	}
}

func TestRunReloadsOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	orders := filepath.Join(root, "supply", "orders.jsonl")
	writeFile(t, orders, `{"order_fulfilled":true}`+"\n")

	fetcher := source.NewFileFetcher(root)
	cache, err := source.NewCache(fetcher, 0)
	if err != nil {
		t.Fatal(err)
	}
	loader := source.NewLoader(cache, nil)
	h := records.NewHolder(nil)
	if _, err := loader.Reload(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	if got := len(h.Load().Orders); got != 1 {
		t.Fatalf("initial orders = %d", got)
	}

	reloaded := make(chan struct{}, 1)
	base := ReloadOnChange(loader, cache, h, nil)
	onChange := func(ctx context.Context, changes []Change) error {
		err := base(ctx, changes)
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return err
	}
	w := New(fetcher, nil, onChange, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// let Run prime before changing the file
	deadline := time.Now().Add(2 * time.Second)
	for len(w.States()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	writeFile(t, orders, `{"order_fulfilled":true}`+"\n"+`{"order_fulfilled":false}`+"\n")

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("watcher did not reload")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := len(h.Load().Orders); got != 2 {
		t.Fatalf("orders after reload = %d, want 2", got)
	}
}
