package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// fakeS3 serves path-style GetObject requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	paths   []string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, req.URL.Path)
	if req.Method != http.MethodGet {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	// /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	body, ok := f.objects[key]
	if !ok {
		msg := `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(msg)),
			Header:     http.Header{"Content-Type": {"application/xml"}},
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header: http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(body))},
			"Content-Type":   {"application/x-ndjson"},
		},
		ContentLength: int64(len(body)),
	}, nil
}

func newFakeS3Fetcher(t *testing.T, prefix string, objects map[string][]byte) (*S3Fetcher, *fakeS3) {
	t.Helper()
	rt := &fakeS3{objects: objects}
	f, err := NewS3Fetcher(context.Background(), S3Config{
		Bucket:          "kpi-data",
		Prefix:          prefix,
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewS3Fetcher returned error: %v", err)
	}
	return f, rt
}

func TestS3FetcherGet(t *testing.T) {
	t.Parallel()

	f, rt := newFakeS3Fetcher(t, "exports/2026", map[string][]byte{
		"exports/2026/quality/deviations.jsonl": []byte(`{"severity":"Critical"}` + "\n"),
	})
	data, err := f.Fetch(context.Background(), "quality/deviations.jsonl")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(string(data), "Critical") {
		t.Fatalf("unexpected body %q", data)
	}
	if len(rt.paths) == 0 || rt.paths[0] != "/kpi-data/exports/2026/quality/deviations.jsonl" {
		t.Fatalf("request paths = %v", rt.paths)
	}
}

func TestS3FetcherMissingKey(t *testing.T) {
	t.Parallel()

	f, _ := newFakeS3Fetcher(t, "", map[string][]byte{})
	if _, err := f.Fetch(context.Background(), "quality/labs.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestS3FetcherRequiresBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewS3Fetcher(context.Background(), S3Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestS3Key(t *testing.T) {
	t.Parallel()

	f := &S3Fetcher{prefix: "exports"}
	if got := f.Key("/supply/orders.jsonl"); got != "exports/supply/orders.jsonl" {
		t.Fatalf("Key = %q", got)
	}
	f.prefix = ""
	if got := f.Key("supply/orders.jsonl"); got != "supply/orders.jsonl" {
		t.Fatalf("Key = %q", got)
	}
}
