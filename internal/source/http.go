package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPConfig configures the http driver.
type HTTPConfig struct {
	BaseURL string            `yaml:"base_url" json:"base_url"`
	Headers map[string]string `yaml:"headers" json:"-"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`

	Client *http.Client `yaml:"-" json:"-"`
}

// HTTPFetcher reads references as paths below a base URL.
type HTTPFetcher struct {
	base    *url.URL
	headers map[string]string
	client  *http.Client
}

// NewHTTPFetcher validates cfg and returns a fetcher.
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("http base_url required")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base_url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base_url must be http or https: %s", cfg.BaseURL)
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPFetcher{base: base, headers: cfg.Headers, client: client}, nil
}

// URL resolves ref against the base URL.
func (f *HTTPFetcher) URL(ref string) (string, error) {
	rel, err := url.Parse(strings.TrimLeft(ref, "/"))
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return f.base.ResolveReference(rel).String(), nil
}

// Fetch GETs the document behind ref.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := f.URL(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson, application/jsonl, */*")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("get %s: unexpected status %s", target, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}
