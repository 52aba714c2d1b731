package extract

import (
	"context"
	"regexp"

	"github.com/panbanda/refgraph/pkg/models"
)

// Shell extracts files sourced with "source" or ".".
type Shell struct{}

// NewShell creates the shell script extractor.
func NewShell() *Shell { return &Shell{} }

func (*Shell) Name() string { return "shell" }

func (*Shell) Extensions() []string { return []string{".sh", ".bash", ".zsh"} }

var shSourceRe = regexp.MustCompile(`^\s*(?:source|\.)\s+["']?([^\s"';&|]+)`)

func (*Shell) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	return scanLines(ctx, path, content, []rule{
		{re: shSourceRe, typ: models.RefPath, group: 1, expand: relativeToFile},
	})
}

// Ruby extracts require and require_relative. require_relative names a
// path relative to the file; plain require names a load-path feature and
// is resolved like a qualified module.
type Ruby struct{}

// NewRuby creates the Ruby extractor.
func NewRuby() *Ruby { return &Ruby{} }

func (*Ruby) Name() string { return "ruby" }

func (*Ruby) Extensions() []string { return []string{".rb", ".rake"} }

var (
	rbRelativeRe = regexp.MustCompile(`^\s*require_relative\s*\(?\s*["']([^"']+)["']`)
	rbRequireRe  = regexp.MustCompile(`^\s*require\s*\(?\s*["']([^"']+)["']`)
)

func (*Ruby) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	return scanLines(ctx, path, content, []rule{
		{re: rbRelativeRe, typ: models.RefRequire, group: 1, expand: relativeToFile},
		{re: rbRequireRe, typ: models.RefRequire, group: 1, expand: rubyFeature},
	})
}

func rubyFeature(tok string, col int) []token {
	if len(tok) > 0 && tok[0] == '.' {
		return []token{{raw: tok, target: tok, col: col}}
	}
	return []token{{raw: tok, target: tok, col: col, qualified: true}}
}
