package extract

import (
	"context"
	"regexp"

	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// ECMAScript extracts import, export-from, require and dynamic import
// references from JavaScript and TypeScript using tree-sitter. When the
// grammar cannot produce a tree it falls back to line patterns.
type ECMAScript struct{}

// NewECMAScript creates the JavaScript/TypeScript extractor.
func NewECMAScript() *ECMAScript { return &ECMAScript{} }

func (*ECMAScript) Name() string { return "ecmascript" }

func (*ECMAScript) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}
}

func (e *ECMAScript) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		lang = parser.LangJavaScript
	}

	p := parser.New()
	defer p.Close()

	result, err := p.Parse(ctx, content, lang, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return scanLines(ctx, path, content, ecmascriptRules)
	}
	defer result.Close()

	var refs []models.RawReference
	add := func(node *sitter.Node, typ models.ReferenceType) {
		value, ok := parser.StringLiteralValue(node, result.Source)
		if !ok || value == "" {
			return
		}
		pt := node.StartPoint()
		refs = append(refs, models.RawReference{
			Source: path,
			Line:   int(pt.Row) + 1,
			Column: int(pt.Column) + 1,
			Type:   typ,
			Raw:    value,
			Target: value,
		})
	}

	parser.WalkTyped(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		switch nodeType {
		case "import_statement", "export_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				add(src, models.RefImport)
			}
		case "import_require_clause":
			// TypeScript: import x = require("./x")
			src := node.ChildByFieldName("source")
			for i := 0; src == nil && i < int(node.NamedChildCount()); i++ {
				if c := node.NamedChild(i); c.Type() == "string" {
					src = c
				}
			}
			add(src, models.RefRequire)
			return false
		case "call_expression":
			fn := node.ChildByFieldName("function")
			if fn == nil {
				return true
			}
			var typ models.ReferenceType
			switch fn.Type() {
			case "import":
				typ = models.RefImport
			case "identifier":
				if parser.GetNodeText(fn, source) != "require" {
					return true
				}
				typ = models.RefRequire
			default:
				return true
			}
			if args := node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				add(args.NamedChild(0), typ)
			}
		}
		return true
	})
	return refs
}

// ecmascriptRules are the fallback line patterns, also used for script
// blocks inside component files.
var ecmascriptRules = []rule{
	{re: regexp.MustCompile(`^\s*import\s+(?:type\s+)?(?:[\w*{}\s,$]+\s+from\s+)?["']([^"']+)["']`), typ: models.RefImport, group: 1},
	{re: regexp.MustCompile(`^\s*export\s+(?:type\s+)?[\w*{}\s,$]+\s+from\s+["']([^"']+)["']`), typ: models.RefImport, group: 1},
	{re: regexp.MustCompile(`\bimport\s*\(\s*["']([^"']+)["']\s*\)`), typ: models.RefImport, group: 1},
	{re: regexp.MustCompile(`\brequire\s*\(\s*["']([^"']+)["']\s*\)`), typ: models.RefRequire, group: 1},
}
