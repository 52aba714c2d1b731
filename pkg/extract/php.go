package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// PHP extracts include and require statements with literal paths,
// including the __DIR__ . '/file.php' form.
type PHP struct{}

// NewPHP creates the PHP extractor.
func NewPHP() *PHP { return &PHP{} }

func (*PHP) Name() string { return "php" }

func (*PHP) Extensions() []string { return []string{".php", ".phtml"} }

var phpIncludeRe = regexp.MustCompile(`\b(?:include|include_once|require|require_once)\b\s*\(?\s*((?:__DIR__|dirname\s*\(\s*__FILE__\s*\))\s*\.\s*)?["']([^"']+)["']`)

func (*PHP) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	return scanLines(ctx, path, content, []rule{
		{re: phpIncludeRe, typ: models.RefInclude, group: 0, expand: phpInclude},
	})
}

func phpInclude(match string, col int) []token {
	m := phpIncludeRe.FindStringSubmatchIndex(match)
	if m == nil {
		return nil
	}
	lit := match[m[4]:m[5]]
	var target string
	if m[2] >= 0 {
		// __DIR__ . '/x.php' is relative to the including file
		target = "./" + strings.TrimPrefix(lit, "/")
	} else {
		target = explicitRelative(lit)
	}
	return []token{{raw: lit, target: target, col: col + m[4]}}
}
