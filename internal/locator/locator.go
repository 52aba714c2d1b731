// Package locator resolves a user-supplied focus (a path, glob or bare file
// name) to one file of an analyzed tree.
package locator

import (
	"errors"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchKind records which rule located the file.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchGlob     MatchKind = "glob"
	MatchBasename MatchKind = "basename"
	MatchSuffix   MatchKind = "suffix"
)

// Result contains the resolved path or, for an ambiguous focus, the
// candidates.
type Result struct {
	Kind       MatchKind
	Path       string
	Candidates []string
}

var (
	ErrNotFound       = errors.New("no file found")
	ErrAmbiguousMatch = errors.New("ambiguous match")
)

// Options configures the Locate behavior.
type Options struct {
	// Root is the absolute tree root; absolute focus paths under it are
	// made relative.
	Root string
	// MaxCandidates caps Result.Candidates. Zero means no cap.
	MaxCandidates int
}

// Option is a functional option for Locate.
type Option func(*Options)

// WithRoot sets the tree root used to relativize absolute paths.
func WithRoot(root string) Option {
	return func(o *Options) {
		o.Root = root
	}
}

// WithMaxCandidates caps the candidates returned for an ambiguous focus.
func WithMaxCandidates(n int) Option {
	return func(o *Options) {
		o.MaxCandidates = n
	}
}

// Locate resolves focus against the canonical paths of a tree.
// Resolution order: exact path -> glob -> basename -> path suffix.
func Locate(focus string, paths []string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	canonical := canonicalize(focus, options.Root)
	if canonical == "" {
		return nil, ErrNotFound
	}

	for _, p := range paths {
		if p == canonical {
			return &Result{Kind: MatchExact, Path: p}, nil
		}
	}

	if containsGlobChars(canonical) {
		if !doublestar.ValidatePattern(canonical) {
			return nil, doublestar.ErrBadPattern
		}
		return pick(MatchGlob, paths, options, func(p string) bool {
			ok, _ := doublestar.Match(canonical, p)
			return ok
		})
	}

	if !strings.Contains(canonical, "/") {
		return pick(MatchBasename, paths, options, func(p string) bool {
			return path.Base(p) == canonical
		})
	}

	return pick(MatchSuffix, paths, options, func(p string) bool {
		return strings.HasSuffix(p, "/"+canonical)
	})
}

func pick(kind MatchKind, paths []string, options *Options, match func(string) bool) (*Result, error) {
	var matches []string
	for _, p := range paths {
		if match(p) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &Result{Kind: kind, Path: matches[0]}, nil
	}
	sort.Strings(matches)
	if options.MaxCandidates > 0 && len(matches) > options.MaxCandidates {
		matches = matches[:options.MaxCandidates]
	}
	return &Result{Kind: kind, Candidates: matches}, ErrAmbiguousMatch
}

// canonicalize turns focus into a slash-separated path relative to root.
func canonicalize(focus, root string) string {
	focus = strings.TrimSpace(focus)
	if root != "" && filepath.IsAbs(focus) {
		if rel, err := filepath.Rel(root, focus); err == nil && !strings.HasPrefix(rel, "..") {
			focus = rel
		}
	}
	focus = filepath.ToSlash(focus)
	if containsGlobChars(focus) {
		return strings.TrimPrefix(focus, "./")
	}
	cleaned := path.Clean(focus)
	if cleaned == "." {
		return ""
	}
	return strings.TrimPrefix(cleaned, "/")
}

func containsGlobChars(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
