// Package uri resolves the URIs a worker reads tracking configurations from
// and writes files to. Besides plain paths it understands file://, http(s)://
// and virtual schemes registered by prefix (for example "project-dir:").
package uri

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
	"github.com/randalmurphal/trackflow/pkg/trackflow/registry"
)

// Sentinel errors for URI resolution.
var (
	// ErrUnsupportedScheme indicates no handler is registered for the URI.
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")

	// ErrReadOnly indicates the handler cannot store data.
	ErrReadOnly = errors.New("uri is read-only")

	// ErrEmptyURI indicates an empty URI was passed.
	ErrEmptyURI = errors.New("empty uri")
)

// Handler reads and writes the resources behind one scheme. The uri passed
// to a handler still carries its prefix.
type Handler interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Put(ctx context.Context, uri string, data []byte) error
}

// Resolver dispatches URIs to handlers by prefix. The longest matching
// prefix wins; URIs without a registered prefix are treated as file paths.
// ${name} placeholders are replaced by variables set with SetVar before
// dispatch.
type Resolver struct {
	schemes *registry.Registry[string, Handler]
	file    Handler
	tempDir string
	vars    vars
}

// Option configures a Resolver.
type Option func(*resolverConfig)

type resolverConfig struct {
	http    *HTTPHandler
	tempDir string
}

// WithHTTP replaces the handler used for http:// and https:// URIs.
func WithHTTP(h *HTTPHandler) Option {
	return func(c *resolverConfig) {
		c.http = h
	}
}

// WithTempDir sets the directory TempName generates names in.
// Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(c *resolverConfig) {
		c.tempDir = dir
	}
}

// NewResolver creates a resolver with file, http and https registered.
func NewResolver(opts ...Option) *Resolver {
	cfg := resolverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.http == nil {
		cfg.http = NewHTTPHandler(nil)
	}
	if cfg.tempDir == "" {
		cfg.tempDir = os.TempDir()
	}

	r := &Resolver{
		schemes: registry.New[string, Handler](),
		file:    FileHandler{},
		tempDir: cfg.tempDir,
	}
	r.schemes.Register("file://", r.file)
	r.schemes.Register("http://", cfg.http)
	r.schemes.Register("https://", cfg.http)
	return r
}

// Register installs h for URIs starting with prefix, replacing any
// previous handler for the same prefix.
func (r *Resolver) Register(prefix string, h Handler) {
	r.schemes.Register(prefix, h)
}

// RegisterDir maps a virtual prefix onto a directory, so that
// "<prefix>a/b.json" resolves to "<dir>/a/b.json".
func (r *Resolver) RegisterDir(prefix, dir string) {
	r.schemes.Register(prefix, DirHandler{Prefix: prefix, Dir: dir})
}

// Unregister removes the handler for prefix.
func (r *Resolver) Unregister(prefix string) {
	r.schemes.Delete(prefix)
}

// SetVar defines the value substituted for ${name}.
func (r *Resolver) SetVar(name, value string) {
	r.vars.set(name, value)
}

// UnsetVar removes a variable.
func (r *Resolver) UnsetVar(name string) {
	r.vars.unset(name)
}

// Var returns the value of a variable.
func (r *Resolver) Var(name string) (string, bool) {
	return r.vars.get(name)
}

// Expand substitutes the variables in uri. Undefined variables fail with
// *UndefinedVariableError.
func (r *Resolver) Expand(uri string) (string, error) {
	return r.vars.expand(uri)
}

// Prefixes lists the registered prefixes in sorted order.
func (r *Resolver) Prefixes() []string {
	return r.schemes.Keys()
}

// Fetch reads the resource behind uri.
func (r *Resolver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	expanded, err := r.Expand(uri)
	if err != nil {
		return nil, tferrors.Wrap(tferrors.FileReadingFailed, uri, err)
	}
	uri = expanded
	h, err := r.handler(uri)
	if err != nil {
		return nil, err
	}
	data, err := h.Fetch(ctx, uri)
	if err != nil {
		return nil, tferrors.Wrap(tferrors.FileReadingFailed, uri, err)
	}
	return data, nil
}

// Put stores data at uri.
func (r *Resolver) Put(ctx context.Context, uri string, data []byte) error {
	uri, err := r.Expand(uri)
	if err != nil {
		return err
	}
	h, err := r.handler(uri)
	if err != nil {
		return err
	}
	return h.Put(ctx, uri, data)
}

// TempName returns a fresh, unused file path in the temp directory. ext
// is appended verbatim and may be empty.
func (r *Resolver) TempName(ext string) string {
	return filepath.Join(r.tempDir, "trackflow-"+uuid.NewString()+ext)
}

func (r *Resolver) handler(uri string) (Handler, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	var (
		best  string
		found Handler
	)
	r.schemes.Range(func(prefix string, h Handler) bool {
		if strings.HasPrefix(uri, prefix) && len(prefix) > len(best) {
			best, found = prefix, h
		}
		return true
	})
	if found != nil {
		return found, nil
	}
	if scheme, ok := schemeOf(uri); ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return r.file, nil
}

// schemeOf reports a "name://" style scheme. Windows drive letters and
// plain paths have none.
func schemeOf(uri string) (string, bool) {
	i := strings.Index(uri, "://")
	if i <= 1 {
		return "", false
	}
	return uri[:i], true
}

// Ext returns the file extension of uri, ignoring any query string.
func Ext(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	return strings.ToLower(filepath.Ext(uri))
}
