// Package extract finds cross-file references in source text.
//
// Each syntax family is handled by an Extractor strategy registered under
// the file extensions it understands. Extractors are pure: they see a path
// and its bytes, never the filesystem, and a line they cannot make sense of
// yields no references rather than an error.
package extract

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/panbanda/refgraph/pkg/models"
)

var (
	// ErrUnsupported is returned for a path no extractor is registered for.
	ErrUnsupported = errors.New("no extractor for file type")
	// ErrBinary is returned for content that looks binary.
	ErrBinary = errors.New("binary content")
)

// Extractor produces the raw references of one source file in file order.
type Extractor interface {
	// Name identifies the strategy, e.g. in cache keys and logs.
	Name() string
	// Extensions lists the lower-case file extensions handled, with the dot.
	Extensions() []string
	// Extract returns the references found in content.
	Extract(ctx context.Context, path string, content []byte) []models.RawReference
}

// Registry maps file extensions to extractors. It is safe for concurrent
// use once built; Register may be called concurrently with lookups.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]Extractor
}

// NewRegistry creates a registry holding the given extractors. Later
// extractors win when two claim the same extension.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in strategy.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewECMAScript(),
		NewPython(),
		NewJVM(),
		NewPHP(),
		NewCFamily(),
		NewMarkup(),
		NewComponent(),
		NewStylesheet(),
		NewConfigFile(),
		NewShell(),
		NewRuby(),
	)
}

// Register adds e under each of its extensions.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor responsible for path.
func (r *Registry) For(path string) (Extractor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byExt[ext]
	return e, ok
}

// Supports reports whether path is a source file for this registry.
func (r *Registry) Supports(path string) bool {
	_, ok := r.For(path)
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract runs the responsible extractor on content. References come back
// sorted by line then column, with exact duplicates removed.
func (r *Registry) Extract(ctx context.Context, path string, content []byte) ([]models.RawReference, error) {
	e, ok := r.For(path)
	if !ok {
		return nil, ErrUnsupported
	}
	if IsBinary(content) {
		return nil, ErrBinary
	}
	return Normalize(e.Extract(ctx, path, content)), nil
}

// binaryProbe is how many leading bytes IsBinary inspects.
const binaryProbe = 8000

// IsBinary reports whether content contains a NUL byte near its start.
func IsBinary(content []byte) bool {
	probe := content
	if len(probe) > binaryProbe {
		probe = probe[:binaryProbe]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// Normalize sorts references into file order and drops exact duplicates.
func Normalize(refs []models.RawReference) []models.RawReference {
	if len(refs) == 0 {
		return []models.RawReference{}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Raw < b.Raw
	})
	out := refs[:1]
	for _, ref := range refs[1:] {
		last := out[len(out)-1]
		if ref.Line == last.Line && ref.Column == last.Column && ref.Raw == last.Raw && ref.Type == last.Type {
			continue
		}
		out = append(out, ref)
	}
	return out
}
