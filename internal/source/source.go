// Package source fetches raw JSONL for each record kind and assembles a
// records.Store from it.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"kpiboard/internal/records"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown source driver")
	// ErrNotFound marks a reference that does not exist in the backend.
	ErrNotFound = errors.New("source not found")
)

// Driver names accepted by Open.
const (
	DriverFile = "file"
	DriverS3   = "s3"
	DriverHTTP = "http"
	DriverSQL  = "sql"
)

// Fetcher returns the raw newline-delimited JSON behind ref.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, ref string) ([]byte, error) { return f(ctx, ref) }

// Layout maps each kind to the reference its fetcher understands: a relative
// path, an object key, a URL path or a table name.
type Layout map[records.Kind]string

// DefaultLayout returns the standard reference for every kind.
func DefaultLayout() Layout {
	out := make(Layout, len(records.Kinds()))
	for _, k := range records.Kinds() {
		out[k] = k.DefaultRef()
	}
	return out
}

// ParseLayout builds a layout from kind-name overrides on top of the default.
func ParseLayout(overrides map[string]string) (Layout, error) {
	out := DefaultLayout()
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		k, err := records.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		ref := strings.TrimSpace(overrides[name])
		if ref == "" {
			return nil, fmt.Errorf("parse layout: empty reference for %s", name)
		}
		out[k] = ref
	}
	return out, nil
}

// Ref returns the reference for k, falling back to the default.
func (l Layout) Ref(k records.Kind) string {
	if ref, ok := l[k]; ok && ref != "" {
		return ref
	}
	return k.DefaultRef()
}

// Config selects and configures a fetcher backend.
type Config struct {
	Driver string     `yaml:"driver" json:"driver"`
	File   FileConfig `yaml:"file" json:"file"`
	S3     S3Config   `yaml:"s3" json:"s3"`
	HTTP   HTTPConfig `yaml:"http" json:"http"`
	SQL    SQLConfig  `yaml:"sql" json:"sql"`
}

// FileConfig configures the file driver.
type FileConfig struct {
	Root string `yaml:"root" json:"root"`
}

// Open builds the fetcher named by cfg.Driver. An empty driver means file.
// The returned close function releases backend resources and is never nil.
func Open(ctx context.Context, cfg Config) (Fetcher, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFile:
		return NewFileFetcher(cfg.File.Root), noop, nil
	case DriverS3:
		f, err := NewS3Fetcher(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case DriverHTTP:
		f, err := NewHTTPFetcher(cfg.HTTP)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case DriverSQL:
		f, err := OpenSQL(ctx, cfg.SQL)
		if err != nil {
			return nil, noop, err
		}
		return f, f.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
