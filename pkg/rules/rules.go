// Package rules matches canonical tree paths against glob rule sets such as
// entry points and the never-unused allow-list.
package rules

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Set is a compiled list of glob patterns.
//
// Pattern semantics:
//   - a leading "/" anchors the pattern at the tree root;
//   - a pattern with no "/" matches the file's base name at any depth;
//   - any other pattern is matched against the whole canonical path,
//     with "**" spanning directories.
type Set struct {
	patterns []pattern
}

type pattern struct {
	raw      string
	glob     string
	basename bool
}

// Compile validates and compiles patterns. An empty or nil slice compiles to
// a set that matches nothing.
func Compile(patterns []string) (*Set, error) {
	s := &Set{patterns: make([]pattern, 0, len(patterns))}
	for _, raw := range patterns {
		p := pattern{raw: raw}
		switch {
		case strings.HasPrefix(raw, "/"):
			p.glob = strings.TrimPrefix(raw, "/")
		case !strings.Contains(raw, "/"):
			p.glob = raw
			p.basename = true
		default:
			p.glob = raw
		}
		if p.glob == "" || !doublestar.ValidatePattern(p.glob) {
			return nil, fmt.Errorf("invalid pattern %q: %w", raw, doublestar.ErrBadPattern)
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(patterns []string) *Set {
	s, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether the canonical path matches any pattern.
func (s *Set) Match(path string) bool {
	_, ok := s.MatchPattern(path)
	return ok
}

// MatchPattern returns the first pattern, as written, that matches path.
func (s *Set) MatchPattern(path string) (string, bool) {
	if s == nil {
		return "", false
	}
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	for _, p := range s.patterns {
		target := path
		if p.basename {
			target = base
		}
		if ok, _ := doublestar.Match(p.glob, target); ok {
			return p.raw, true
		}
	}
	return "", false
}

// Len returns the number of patterns in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Filter returns the paths that match the set, preserving order.
func (s *Set) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if s.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
