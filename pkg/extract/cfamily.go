package extract

import (
	"context"
	"regexp"

	"github.com/panbanda/refgraph/pkg/models"
)

// CFamily extracts quoted #include and #import directives. Angle-bracket
// includes name headers on the compiler search path and are skipped.
type CFamily struct{}

// NewCFamily creates the C/C++/Objective-C extractor.
func NewCFamily() *CFamily { return &CFamily{} }

func (*CFamily) Name() string { return "cfamily" }

func (*CFamily) Extensions() []string {
	return []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".hxx", ".hh", ".m", ".mm"}
}

var cIncludeRe = regexp.MustCompile(`^\s*#\s*(?:include|import)\s*"([^"]+)"`)

func (*CFamily) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	return scanLines(ctx, path, content, []rule{
		{re: cIncludeRe, typ: models.RefInclude, group: 1, expand: relativeToFile},
	})
}
