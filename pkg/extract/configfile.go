package extract

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// ConfigFile extracts path-like string values from configuration formats.
// Only values that end in a known file extension are considered, so plain
// strings, versions and identifiers are not mistaken for paths.
type ConfigFile struct{}

// NewConfigFile creates the configuration-file extractor.
func NewConfigFile() *ConfigFile { return &ConfigFile{} }

func (*ConfigFile) Name() string { return "config" }

func (*ConfigFile) Extensions() []string {
	return []string{".json", ".yaml", ".yml", ".toml", ".properties", ".ini", ".conf", ".cfg"}
}

const pathExts = `json|ya?ml|toml|properties|conf|config|ini|xml|html?|css|scss|m?js|cjs|jsx|tsx?|py|rb|php|sh|sql|java`

var (
	quotedPathRe   = regexp.MustCompile(`["']([^"'\s]+\.(?:` + pathExts + `))["']`)
	unquotedPathRe = regexp.MustCompile(`^\s*[\w.\-\[\]]+\s*[:=]\s*([^\s"'#,\[\]{}]+\.(?:` + pathExts + `))\s*(?:#.*)?$`)
)

func (*ConfigFile) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	rules := []rule{{re: quotedPathRe, typ: models.RefPath, group: 1, expand: configPath}}
	switch extOf(path) {
	case ".yaml", ".yml", ".properties", ".ini", ".conf", ".cfg":
		rules = append(rules, rule{re: unquotedPathRe, typ: models.RefPath, group: 1, expand: configPath})
	}
	return scanLines(ctx, path, content, rules)
}

func configPath(tok string, col int) []token {
	if strings.Contains(tok, "*") {
		// globs name file sets, not files
		return nil
	}
	return relativeToFile(tok, col)
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
