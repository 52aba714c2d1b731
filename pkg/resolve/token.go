package resolve

import (
	"regexp"
	"strings"
)

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// Clean strips a query string and fragment from tok and normalizes
// backslash separators.
func Clean(tok string) string {
	tok = strings.TrimSpace(tok)
	if i := strings.IndexAny(tok, "?#"); i >= 0 {
		tok = tok[:i]
	}
	return strings.ReplaceAll(tok, `\`, "/")
}

// IsExternal reports whether a cleaned token names something outside the
// tree: URLs and other schemes, protocol-relative hosts, template
// placeholders, environment variables, home-relative paths, and plain names
// with no path shape. Qualified names are judged by the resolver instead.
func IsExternal(tok string, qualified bool) bool {
	switch {
	case tok == "":
		return true
	case strings.HasPrefix(tok, "//"),
		strings.HasPrefix(tok, "$"),
		strings.HasPrefix(tok, "~"),
		strings.Contains(tok, "${"),
		strings.Contains(tok, "{{"),
		strings.Contains(tok, "<%"),
		schemeRe.MatchString(tok):
		return true
	case qualified:
		return false
	}
	return !strings.Contains(tok, "/") && tok != "." && tok != ".."
}
