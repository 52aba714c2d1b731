// Package remote lets a command analyze a git repository by URL. The
// repository is cloned into a temporary directory first.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrRefNotFound is returned when the requested ref does not exist.
var ErrRefNotFound = errors.New("ref not found")

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	path, ref := splitRef(path)

	switch {
	case hasScheme(path), strings.HasPrefix(path, "git@"):
		return &Source{URL: path, Ref: ref}, nil
	case isHostPath(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

// splitRef splits path@ref. Only an @ after the host part counts, so the
// user of an SSH address is not mistaken for a ref.
func splitRef(path string) (string, string) {
	start := 0
	if i := strings.Index(path, "://"); i != -1 {
		start = i + 3
	}
	slash := strings.Index(path[start:], "/")
	if slash == -1 {
		return path, ""
	}
	slash += start
	at := strings.Index(path[slash:], "@")
	if at == -1 {
		return path, ""
	}
	at += slash
	return path[:at], path[at+1:]
}

func hasScheme(path string) bool {
	for _, scheme := range []string{"https://", "http://", "ssh://", "git://", "file://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// isHostPath matches host/owner/repo such as github.com/golang/go.
func isHostPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || !strings.Contains(parts[0], ".") || strings.HasPrefix(parts[0], ".") {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	if strings.Count(path, "/") != 1 {
		return false
	}
	// a dot before the slash would be a domain
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone clones the repository into a new temporary directory and checks
// out Ref. Clone progress is written to progress. A shallow clone fetches
// only the tip of Ref; a SHA always needs the full history.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "refgraph-remote-*")
	if err != nil {
		return err
	}
	s.CloneDir = dir

	if shallow && !plumbing.IsHash(s.Ref) {
		err = s.cloneShallow(ctx, progress)
	} else {
		err = s.cloneFull(ctx, progress)
	}
	if err != nil {
		s.Cleanup()
		return fmt.Errorf("cloning %s: %w", s.URL, err)
	}
	return nil
}

func (s *Source) cloneShallow(ctx context.Context, progress io.Writer) error {
	opts := &git.CloneOptions{
		URL:          s.URL,
		Progress:     progress,
		Depth:        1,
		SingleBranch: true,
	}
	if s.Ref == "" {
		_, err := git.PlainCloneContext(ctx, s.CloneDir, false, opts)
		return err
	}

	var lastErr error
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.Ref),
		plumbing.NewTagReferenceName(s.Ref),
	} {
		opts.ReferenceName = name
		_, lastErr = git.PlainCloneContext(ctx, s.CloneDir, false, opts)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if err := resetDir(s.CloneDir); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrRefNotFound, s.Ref, lastErr)
}

func (s *Source) cloneFull(ctx context.Context, progress io.Writer) error {
	repo, err := git.PlainCloneContext(ctx, s.CloneDir, false, &git.CloneOptions{
		URL:      s.URL,
		Progress: progress,
	})
	if err != nil {
		return err
	}
	if s.Ref == "" {
		return nil
	}

	for _, rev := range []string{s.Ref, "origin/" + s.Ref} {
		hash, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err != nil {
			continue
		}
		wt, err := repo.Worktree()
		if err != nil {
			return err
		}
		return wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true})
	}
	return fmt.Errorf("%w: %s", ErrRefNotFound, s.Ref)
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() {
	if s.CloneDir != "" {
		os.RemoveAll(s.CloneDir)
		s.CloneDir = ""
	}
}
