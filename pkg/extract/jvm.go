package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// JVM extracts import declarations from Java, Kotlin, Groovy and Scala.
// Imports are qualified names; wildcard and grouped imports name packages,
// not files, and are skipped.
type JVM struct{}

// NewJVM creates the JVM-language extractor.
func NewJVM() *JVM { return &JVM{} }

func (*JVM) Name() string { return "jvm" }

func (*JVM) Extensions() []string { return []string{".java", ".kt", ".kts", ".groovy", ".scala"} }

var jvmImportRe = regexp.MustCompile(`^\s*import\s+(static\s+)?([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)(\.\*|\.\{)?`)

func (*JVM) Extract(ctx context.Context, path string, content []byte) []models.RawReference {
	return scanLines(ctx, path, content, []rule{
		{re: jvmImportRe, typ: models.RefImport, group: 0, expand: jvmImport},
	})
}

func jvmImport(line string, col int) []token {
	m := jvmImportRe.FindStringSubmatchIndex(line)
	if m == nil || m[6] >= 0 {
		return nil
	}
	name := line[m[4]:m[5]]
	segments := strings.Split(name, ".")
	if segments[len(segments)-1] == "_" {
		// Scala wildcard
		return nil
	}
	if m[2] >= 0 && len(segments) > 1 {
		// static import: the last segment is a member of the class
		segments = segments[:len(segments)-1]
	}
	return []token{{
		raw:       name,
		target:    strings.Join(segments, "/"),
		col:       col + m[4],
		qualified: true,
	}}
}
