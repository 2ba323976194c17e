package source

import (
	"context"
	"errors"
	"testing"
)

func TestCache(t *testing.T) {
	t.Parallel()

	calls := map[string]int{}
	fail := true
	f := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		calls[ref]++
		if ref == "flaky" && fail {
			return nil, errors.New("flaky")
		}
		return []byte(ref), nil
	})
	c, err := NewCache(f, 2)
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(ctx, "a"); err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
	}
	if calls["a"] != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls["a"])
	}

	c.Invalidate("a")
	_, _ = c.Fetch(ctx, "a")
	if calls["a"] != 2 {
		t.Fatalf("upstream calls after invalidate = %d, want 2", calls["a"])
	}

	if _, err := c.Fetch(ctx, "flaky"); err == nil {
		t.Fatalf("expected error")
	}
	fail = false
	if _, err := c.Fetch(ctx, "flaky"); err != nil {
		t.Fatalf("errors must not be cached: %v", err)
	}

	_, _ = c.Fetch(ctx, "b")
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (lru bound)", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Len after purge = %d", c.Len())
	}
	if c.Upstream() == nil {
		t.Fatalf("Upstream is nil")
	}
}

func TestNewCacheRequiresFetcher(t *testing.T) {
	t.Parallel()

	if _, err := NewCache(nil, 1); err == nil {
		t.Fatalf("expected error")
	}
}
