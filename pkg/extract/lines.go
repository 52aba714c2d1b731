package extract

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// rule is one line-level pattern. The token is taken from submatch group.
type rule struct {
	re    *regexp.Regexp
	typ   models.ReferenceType
	group int
	// expand turns a matched token into zero or more references. It is
	// optional; without it the token becomes a single reference with
	// Target equal to Raw.
	expand func(token string, col int) []token
}

// token is one reference produced from a rule match.
type token struct {
	raw       string
	target    string
	col       int // 1-based byte column of raw on its line
	qualified bool
	fallbacks []string
	optional  bool
	namespace bool
}

// maxLine guards against minified files with enormous lines.
const maxLine = 1 << 20

// scanLines applies rules to every line of content. Lines longer than
// maxLine are skipped whole.
func scanLines(ctx context.Context, path string, content []byte, rules []rule) []models.RawReference {
	var refs []models.RawReference

	lineNo := 0
	for len(content) > 0 {
		lineNo++
		if lineNo%512 == 0 && ctx.Err() != nil {
			return refs
		}
		var raw []byte
		if i := bytes.IndexByte(content, '\n'); i >= 0 {
			raw, content = content[:i], content[i+1:]
		} else {
			raw, content = content, nil
		}
		if len(raw) == 0 || len(raw) > maxLine {
			continue
		}
		line := strings.TrimSuffix(string(raw), "\r")
		for _, r := range rules {
			for _, m := range r.re.FindAllStringSubmatchIndex(line, -1) {
				start, end := m[2*r.group], m[2*r.group+1]
				if start < 0 {
					continue
				}
				tok := line[start:end]
				toks := []token{{raw: tok, target: tok, col: start + 1}}
				if r.expand != nil {
					toks = r.expand(tok, start+1)
				}
				for _, t := range toks {
					if strings.TrimSpace(t.raw) == "" {
						continue
					}
					refs = append(refs, models.RawReference{
						Source:    path,
						Line:      lineNo,
						Column:    t.col,
						Type:      r.typ,
						Raw:       t.raw,
						Target:    t.target,
						Qualified: t.qualified,
						Fallbacks: t.fallbacks,
						Optional:  t.optional,
						Namespace: t.namespace,
					})
				}
			}
		}
	}
	return refs
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// relativeToFile rewrites a bare file name into an explicit relative path.
// Markup, stylesheet, include and config references name files relative to
// the referencing file even without a "./" prefix.
func relativeToFile(tok string, col int) []token {
	return []token{{raw: tok, target: explicitRelative(tok), col: col}}
}

func explicitRelative(tok string) string {
	switch {
	case tok == "." || tok == "..":
		return tok
	case strings.HasPrefix(tok, "/"),
		strings.HasPrefix(tok, "./"),
		strings.HasPrefix(tok, "../"),
		strings.HasPrefix(tok, "#"),
		strings.HasPrefix(tok, "?"),
		strings.HasPrefix(tok, "$"),
		strings.Contains(tok, "{{"),
		strings.Contains(tok, "${"),
		strings.Contains(tok, "<%"),
		schemeRe.MatchString(tok):
		return tok
	}
	return "./" + tok
}
