package uri

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileHandler reads and writes local files. It accepts plain paths and
// file:// URIs.
type FileHandler struct{}

// Fetch implements Handler.
func (FileHandler) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filePath(uri))
}

// Put implements Handler. Missing parent directories are created.
func (FileHandler) Put(ctx context.Context, uri string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFile(filePath(uri), data)
}

// DirHandler serves a virtual prefix from a directory.
type DirHandler struct {
	Prefix string
	Dir    string
}

// Fetch implements Handler.
func (d DirHandler) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.path(uri)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Put implements Handler.
func (d DirHandler) Put(ctx context.Context, uri string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(uri)
	if err != nil {
		return err
	}
	return writeFile(p, data)
}

func (d DirHandler) path(uri string) (string, error) {
	rel := strings.TrimPrefix(strings.TrimPrefix(uri, d.Prefix), "/")
	p := filepath.Join(d.Dir, filepath.FromSlash(rel))
	base := filepath.Clean(d.Dir)
	if p != base && !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("uri %q escapes %s", uri, d.Dir)
	}
	return p, nil
}

func filePath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
