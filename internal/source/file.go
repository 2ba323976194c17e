package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileFetcher reads references as paths relative to Root.
type FileFetcher struct {
	Root string
}

// NewFileFetcher returns a fetcher rooted at root.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{Root: root}
}

// Fetch reads the file behind ref. References may not escape Root.
func (f *FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.Path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Path resolves ref to an absolute path under Root. Absolute references
// are accepted only when they already lie under Root.
func (f *FileFetcher) Path(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("file reference is empty")
	}
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return "", fmt.Errorf("resolve source root: %w", err)
	}
	var path string
	if filepath.IsAbs(ref) {
		path = filepath.Clean(ref)
	} else {
		path = filepath.Join(root, filepath.FromSlash(ref))
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("reference %q escapes source root", ref)
	}
	return path, nil
}
