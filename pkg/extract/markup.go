package extract

import (
	"context"
	"regexp"

	"github.com/panbanda/refgraph/pkg/models"
)

var attrRe = regexp.MustCompile(`\b(?:href|src)\s*=\s*["']([^"']+)["']`)

// Markup extracts href and src attribute values. HTML documents produce
// path references; XML, XSLT, XSD and SVG produce include references.
type Markup struct{}

// NewMarkup creates the HTML/XML extractor.
func NewMarkup() *Markup { return &Markup{} }

func (*Markup) Name() string { return "markup" }

func (*Markup) Extensions() []string {
	return []string{".html", ".htm", ".xhtml", ".xml", ".xsl", ".xslt", ".xsd", ".svg"}
}

func (*Markup) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	typ := models.RefPath
	switch extOf(path) {
	case ".xml", ".xsl", ".xslt", ".xsd", ".svg":
		typ = models.RefInclude
	}
	return scanLines(ctx, path, content, []rule{
		{re: attrRe, typ: typ, group: 1, expand: relativeToFile},
	})
}

// Component extracts references from single-file components (Vue, Svelte,
// Astro): template attributes plus the imports of their script blocks.
type Component struct{}

// NewComponent creates the single-file component extractor.
func NewComponent() *Component { return &Component{} }

func (*Component) Name() string { return "component" }

func (*Component) Extensions() []string { return []string{".vue", ".svelte", ".astro"} }

func (*Component) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	rules := append([]rule{{re: attrRe, typ: models.RefPath, group: 1, expand: relativeToFile}}, ecmascriptRules...)
	return scanLines(ctx, path, content, rules)
}
