package extract

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// Stylesheet extracts @import, @use and @forward rules (import references,
// so extension inference applies) and url() values (path references). In
// Sass files a module URL also tries its partial and index files.
type Stylesheet struct{}

// NewStylesheet creates the CSS/Sass/Less extractor.
func NewStylesheet() *Stylesheet { return &Stylesheet{} }

func (*Stylesheet) Name() string { return "stylesheet" }

func (*Stylesheet) Extensions() []string { return []string{".css", ".scss", ".sass", ".less"} }

var (
	cssImportRe = regexp.MustCompile(`@(?:import|use|forward)\s+["']([^"']+)["']`)
	cssURLRe    = regexp.MustCompile(`url\(\s*["']?([^"')\s]+)["']?\s*\)`)
)

func (*Stylesheet) Extract(ctx context.Context, file string, content []byte) []models.RawReference {
	importExpand := relativeToFile
	if ext := strings.ToLower(path.Ext(file)); ext == ".scss" || ext == ".sass" {
		importExpand = sassModule
	}
	return scanLines(ctx, file, content, []rule{
		{re: cssImportRe, typ: models.RefImport, group: 1, expand: importExpand},
		{re: cssURLRe, typ: models.RefPath, group: 1, expand: relativeToFile},
	})
}

// sassModule resolves a module URL the way Sass loads it: the file itself,
// then the _name partial, then name/_index and name/index.
func sassModule(tok string, col int) []token {
	t := relativeToFile(tok, col)[0]
	if !strings.HasPrefix(t.target, "./") && !strings.HasPrefix(t.target, "../") && !strings.HasPrefix(t.target, "/") {
		return []token{t}
	}
	dir, name := path.Split(t.target)
	if name == "" || name == "." || name == ".." {
		return []token{t}
	}
	if !strings.HasPrefix(name, "_") {
		t.fallbacks = append(t.fallbacks, dir+"_"+name)
	}
	t.fallbacks = append(t.fallbacks, dir+name+"/_index", dir+name+"/index")
	return []token{t}
}
