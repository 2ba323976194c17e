package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kpiboard/internal/records"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFileFetcher(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "supply", "orders.jsonl"), `{"order_fulfilled":true}`+"\n")
	f := NewFileFetcher(root)

	data, err := f.Fetch(context.Background(), "supply/orders.jsonl")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(string(data), "order_fulfilled") {
		t.Fatalf("unexpected data: %q", data)
	}

	if _, err := f.Fetch(context.Background(), "quality/labs.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file err = %v, want ErrNotFound", err)
	}
	if _, err := f.Fetch(context.Background(), "../outside.jsonl"); err == nil {
		t.Fatalf("expected escape error")
	}

	outside := filepath.Join(t.TempDir(), "orders.jsonl")
	writeFile(t, outside, `{"order_fulfilled":true}`+"\n")
	if _, err := f.Fetch(context.Background(), outside); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("absolute reference outside root err = %v, want escape error", err)
	}
	inside, err := f.Path(filepath.Join(root, "supply", "orders.jsonl"))
	if err != nil {
		t.Fatalf("absolute reference under root: %v", err)
	}
	if inside != filepath.Join(root, "supply", "orders.jsonl") {
		t.Fatalf("Path = %q", inside)
	}
}

func TestParseLayout(t *testing.T) {
	t.Parallel()

	layout, err := ParseLayout(map[string]string{"orders": "custom/orders.jsonl"})
	if err != nil {
		t.Fatalf("ParseLayout returned error: %v", err)
	}
	if got := layout.Ref(records.KindOrders); got != "custom/orders.jsonl" {
		t.Fatalf("orders ref = %q", got)
	}
	if got := layout.Ref(records.KindLabs); got != "quality/labs.jsonl" {
		t.Fatalf("labs ref = %q", got)
	}
	if _, err := ParseLayout(map[string]string{"widgets": "x.jsonl"}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if _, err := ParseLayout(map[string]string{"labs": " "}); err == nil {
		t.Fatalf("expected empty reference error")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, closeFn, err := Open(context.Background(), Config{Driver: "ftp"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v, want ErrUnknownDriver", err)
	}
	if closeFn == nil || closeFn() != nil {
		t.Fatalf("close func must be a usable no-op")
	}
	if _, _, err := Open(context.Background(), Config{Driver: "sql", SQL: SQLConfig{Driver: "oracle", DSN: "x"}}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("sql err = %v, want ErrUnknownDriver", err)
	}
}

func TestOpenFileDefault(t *testing.T) {
	t.Parallel()

	f, closeFn, err := Open(context.Background(), Config{File: FileConfig{Root: t.TempDir()}})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer func() { _ = closeFn() }()
	if _, ok := f.(*FileFetcher); !ok {
		t.Fatalf("fetcher = %T, want *FileFetcher", f)
	}
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/data/quality/labs.jsonl":
			_, _ = w.Write([]byte(`{"tat":3}` + "\n" + `{"tat":5}` + "\n"))
		case "/data/quality/broken.jsonl":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPConfig{
		BaseURL: srv.URL + "/data",
		Headers: map[string]string{"Authorization": "Bearer token"},
		Client:  srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewHTTPFetcher returned error: %v", err)
	}
	data, err := f.Fetch(context.Background(), "quality/labs.jsonl")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	labs, err := records.DecodeLines[records.Lab](strings.NewReader(string(data)))
	if err != nil || len(labs) != 2 {
		t.Fatalf("decoded %d labs, err %v", len(labs), err)
	}
	if _, err := f.Fetch(context.Background(), "quality/none.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("404 err = %v, want ErrNotFound", err)
	}
	if _, err := f.Fetch(context.Background(), "quality/broken.jsonl"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("500 err = %v, want non-notfound error", err)
	}
}

func TestNewHTTPFetcherValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPFetcher(HTTPConfig{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := NewHTTPFetcher(HTTPConfig{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
}
