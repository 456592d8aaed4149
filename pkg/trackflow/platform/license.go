package platform

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

// Fetcher reads a resource by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// License holds where the license comes from. The zero value has no license.
type License struct {
	mu   sync.RWMutex
	path string
	data []byte
}

// SetPath sets the license file URI. Inline data set with SetData takes
// precedence until it is cleared with SetData("").
func (l *License) SetPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path = path
}

// SetData injects the license content from memory. An empty string clears
// it so that the file path is used again.
func (l *License) SetData(data string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if data == "" {
		l.data = nil
		return
	}
	l.data = []byte(data)
}

// Path returns the configured license file URI.
func (l *License) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// Configured reports whether a path or inline data has been set.
func (l *License) Configured() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path != "" || l.data != nil
}

// Load returns the license content. Inline data is returned as-is;
// otherwise the path is read through f. A missing license yields
// LicenseFileNotFound.
func (l *License) Load(ctx context.Context, f Fetcher) ([]byte, error) {
	l.mu.RLock()
	path, data := l.path, l.data
	l.mu.RUnlock()

	if data != nil {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	if path == "" {
		return nil, tferrors.New(tferrors.LicenseFileNotFound, "no license set")
	}
	out, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, tferrors.Wrap(tferrors.LicenseFileNotFound, path, err)
	}
	return out, nil
}

// HostID returns a stable identifier for this machine, derived from the
// host name. Empty when the host name is unavailable.
func HostID() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}
