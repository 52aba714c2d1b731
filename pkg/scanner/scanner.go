// Package scanner enumerates a file tree into an immutable index of
// FileNodes keyed by canonical path.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
)

// ErrNotDirectory is returned when the analysis root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Classifier reports whether a canonical path is a source file, i.e. one the
// extractor can read references from.
type Classifier func(path string) bool

// Scanner walks a directory tree honoring the configured exclusions.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
	prefix   []string // root's path below the gitignore domain
	dirs     map[string]struct{}
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	dirs := make(map[string]struct{}, len(cfg.Exclude.Dirs))
	for _, d := range cfg.Exclude.Dirs {
		dirs[d] = struct{}{}
	}
	return &Scanner{config: cfg, dirs: dirs}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config patterns with .gitignore files. The
// .gitignore domain is the enclosing git repository, or the root itself for
// a checkout without a .git directory.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	s.prefix = nil

	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	domain := findGitRoot(root)
	if domain == "" {
		domain = root
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(domain), nil)
	if err != nil || len(gitPatterns) == 0 {
		return
	}
	if rel, err := filepath.Rel(domain, root); err == nil && rel != "." {
		s.prefix = strings.Split(filepath.ToSlash(rel), "/")
	}
	s.matchers = append(s.matchers, gitignore.NewMatcher(gitPatterns))
}

func (s *Scanner) isExcluded(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")
	if isDir {
		if _, ok := s.dirs[parts[len(parts)-1]]; ok {
			return true
		}
	}
	if len(s.matchers) == 0 {
		return false
	}
	full := parts
	if len(s.prefix) > 0 {
		full = append(append([]string{}, s.prefix...), parts...)
	}
	for _, m := range s.matchers {
		if m.Match(full, isDir) {
			return true
		}
	}
	return false
}

// Enumerate walks root and returns the file index. Files whose canonical path
// the classifier accepts are flagged as source files. Symlinks are followed
// only when they stay inside the root; symlinked directories are not entered.
func (s *Scanner) Enumerate(ctx context.Context, root string, classify Classifier) (*Tree, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(realRoot)

	var nodes []models.FileNode
	walkErr := filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() && path != realRoot {
				return filepath.SkipDir
			}
			if path == realRoot {
				return err
			}
			return nil
		}
		if path == realRoot {
			return nil
		}

		relPath, err := filepath.Rel(realRoot, path)
		if err != nil {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if d.IsDir() {
			if s.isExcluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		fi, ok := s.fileInfo(path, d, realRoot)
		if !ok {
			return nil
		}
		if s.isExcluded(rel, false) {
			return nil
		}

		node := models.FileNode{Path: rel, Size: fi.Size()}
		if classify != nil {
			node.Source = classify(rel)
		}
		nodes = append(nodes, node)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return newTree(realRoot, nodes), nil
}

// fileInfo returns stat info for regular files, following symlinks that
// resolve inside root.
func (s *Scanner) fileInfo(path string, d fs.DirEntry, root string) (fs.FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || !isWithinRoot(resolved, root) {
			return nil, false
		}
		fi, err := os.Stat(resolved)
		if err != nil || !fi.Mode().IsRegular() {
			return nil, false
		}
		return fi, true
	}
	if !d.Type().IsRegular() {
		return nil, false
	}
	fi, err := d.Info()
	if err != nil {
		return nil, false
	}
	return fi, true
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// Tree is the immutable FileNode index of one enumeration.
type Tree struct {
	root  string
	files []models.FileNode
	index map[string]int
	dirs  map[string]struct{}
}

func newTree(root string, nodes []models.FileNode) *Tree {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })

	t := &Tree{
		root:  root,
		files: nodes,
		index: make(map[string]int, len(nodes)),
		dirs:  map[string]struct{}{"": {}},
	}
	for i, n := range nodes {
		t.index[n.Path] = i
		dir := n.Path
		for {
			slash := strings.LastIndexByte(dir, '/')
			if slash < 0 {
				break
			}
			dir = dir[:slash]
			if _, seen := t.dirs[dir]; seen {
				break
			}
			t.dirs[dir] = struct{}{}
		}
	}
	return t
}

// NewTree builds an index from nodes without touching the filesystem.
// Duplicate paths keep the first node.
func NewTree(root string, nodes []models.FileNode) *Tree {
	seen := make(map[string]struct{}, len(nodes))
	uniq := make([]models.FileNode, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.Path]; dup {
			continue
		}
		seen[n.Path] = struct{}{}
		uniq = append(uniq, n)
	}
	return newTree(root, uniq)
}

// Root returns the absolute, symlink-resolved root directory.
func (t *Tree) Root() string { return t.root }

// Files returns the nodes sorted by canonical path. Callers must not modify
// the returned slice.
func (t *Tree) Files() []models.FileNode { return t.files }

// Len returns the number of enumerated files.
func (t *Tree) Len() int { return len(t.files) }

// Lookup returns the node for a canonical path.
func (t *Tree) Lookup(path string) (models.FileNode, bool) {
	i, ok := t.index[path]
	if !ok {
		return models.FileNode{}, false
	}
	return t.files[i], true
}

// Has reports whether a file exists at the canonical path.
func (t *Tree) Has(path string) bool {
	_, ok := t.index[path]
	return ok
}

// IsDir reports whether the canonical path is a directory that contains at
// least one enumerated file. The root is "".
func (t *Tree) IsDir(path string) bool {
	_, ok := t.dirs[path]
	return ok
}

// IndexOf returns the position of path in Files.
func (t *Tree) IndexOf(path string) (int, bool) {
	i, ok := t.index[path]
	return i, ok
}

// AbsPath converts a canonical path to an absolute filesystem path.
func (t *Tree) AbsPath(path string) string {
	return filepath.Join(t.root, filepath.FromSlash(path))
}

// SourceFiles returns the nodes flagged as source files.
func (t *Tree) SourceFiles() []models.FileNode {
	var out []models.FileNode
	for _, n := range t.files {
		if n.Source {
			out = append(out, n)
		}
	}
	return out
}
