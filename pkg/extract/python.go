package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// Python extracts import and from-import statements. Relative modules
// (leading dots) become relative paths; absolute modules are qualified
// names resolved against source roots.
type Python struct{}

// NewPython creates the Python extractor.
func NewPython() *Python { return &Python{} }

func (*Python) Name() string { return "python" }

func (*Python) Extensions() []string { return []string{".py", ".pyw", ".pyi"} }

var (
	pyFromRe   = regexp.MustCompile(`^\s*from\s+(\.*[A-Za-z_][\w.]*|\.+)\s+import\s+(.+)$`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+([A-Za-z_][\w.]*(?:\s+as\s+\w+)?(?:\s*,\s*[A-Za-z_][\w.]*(?:\s+as\s+\w+)?)*)`)
	pyIdentRe  = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

func (*Python) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	return scanLines(ctx, path, content, []rule{
		{re: pyFromRe, typ: models.RefImport, group: 0, expand: pythonFrom},
		{re: pyImportRe, typ: models.RefImport, group: 1, expand: pythonImport},
	})
}

// pythonFrom receives the whole from-import line. The module itself is
// referenced as a package; each imported name may be a submodule, so it is
// referenced as module/name with the package as its fallback for names
// defined inside the package.
func pythonFrom(line string, col int) []token {
	m := pyFromRe.FindStringSubmatchIndex(line)
	if m == nil {
		return nil
	}
	module := line[m[2]:m[3]]
	modCol := col + m[2]
	names := line[m[4]:m[5]]

	dots := len(module) - len(strings.TrimLeft(module, "."))
	qualified := dots == 0
	var base string
	switch {
	case qualified:
		base = dottedPath(module)
	case module[dots:] == "":
		base = relativePrefix(dots)
	default:
		base = relativePrefix(dots) + dottedPath(module[dots:])
	}

	body := strings.TrimSpace(strings.SplitN(names, "#", 2)[0])
	out := []token{{raw: module, target: base, col: modCol, qualified: qualified, namespace: true}}
	if body == "*" {
		return out
	}
	namesCol := col + m[4]
	offset := 0
	for _, part := range strings.Split(body, ",") {
		name := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "()"))
		if i := strings.Index(name, " as "); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if pyIdentRe.MatchString(name) {
			c := modCol
			if at := strings.Index(names[offset:], name); at >= 0 {
				c = namesCol + offset + at
			}
			out = append(out, token{
				raw:       submoduleName(module, name),
				target:    submodulePath(base, name),
				col:       c,
				qualified: qualified,
				fallbacks: []string{base},
				optional:  true,
			})
		}
		offset += len(part) + 1
	}
	return out
}

func submoduleName(module, name string) string {
	if strings.HasSuffix(module, ".") {
		return module + name
	}
	return module + "." + name
}

func submodulePath(base, name string) string {
	if strings.HasSuffix(base, "/") {
		return base + name
	}
	return base + "/" + name
}

// pythonImport splits "import a.b, c as d" into one qualified reference per
// module.
func pythonImport(list string, col int) []token {
	var out []token
	offset := 0
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if i := strings.Index(name, " as "); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if name != "" {
			at := strings.Index(list[offset:], name)
			out = append(out, token{raw: name, target: dottedPath(name), col: col + offset + at, qualified: true})
		}
		offset += len(part) + 1
	}
	return out
}

func relativePrefix(dots int) string {
	if dots <= 1 {
		return "./"
	}
	return strings.Repeat("../", dots-1)
}

func dottedPath(module string) string {
	return strings.ReplaceAll(strings.Trim(module, "."), ".", "/")
}
