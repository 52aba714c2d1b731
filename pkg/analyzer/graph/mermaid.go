package graph

import (
	"sort"
	"strconv"
	"strings"

	"github.com/panbanda/refgraph/pkg/models"
)

// NodeStatus decorates a node in rendered diagrams.
type NodeStatus string

const (
	StatusNormal NodeStatus = ""
	StatusEntry  NodeStatus = "entry"
	StatusUnused NodeStatus = "unused"
)

// MermaidDirection specifies the graph direction.
type MermaidDirection string

const (
	DirectionTD MermaidDirection = "TD" // Top-down
	DirectionLR MermaidDirection = "LR" // Left-right
)

// MermaidOptions configures Mermaid diagram generation.
type MermaidOptions struct {
	MaxNodes  int
	MaxEdges  int
	Direction MermaidDirection
	Status    map[string]NodeStatus
}

// DefaultMermaidOptions returns sensible defaults.
func DefaultMermaidOptions() MermaidOptions {
	return MermaidOptions{MaxNodes: 100, MaxEdges: 300, Direction: DirectionLR}
}

// ToMermaid renders the graph as a Mermaid flowchart. Nodes beyond MaxNodes
// (in path order) and edges touching them are dropped.
func (g *Graph) ToMermaid(opts MermaidOptions) string {
	direction := opts.Direction
	if direction == "" {
		direction = DirectionTD
	}

	var b strings.Builder
	b.WriteString("graph " + string(direction) + "\n")

	keep := make(map[string]bool, len(g.paths))
	for i, p := range sortedCopy(g.paths) {
		if opts.MaxNodes > 0 && i >= opts.MaxNodes {
			break
		}
		keep[p] = true
		b.WriteString("    " + g.mermaidID(p) + "[\"" + EscapeMermaidLabel(p) + "\"]")
		if s := opts.Status[p]; s != StatusNormal {
			b.WriteString(":::" + string(s))
		}
		b.WriteString("\n")
	}

	written := 0
	for _, e := range g.Edges() {
		if !keep[e.Source] || !keep[e.Target] {
			continue
		}
		if opts.MaxEdges > 0 && written >= opts.MaxEdges {
			break
		}
		b.WriteString("    " + g.mermaidID(e.Source) + " " + edgeArrow(e.Type) + " " + g.mermaidID(e.Target) + "\n")
		written++
	}

	if len(opts.Status) > 0 {
		b.WriteString("    classDef entry fill:#90EE90\n")
		b.WriteString("    classDef unused fill:#FF6347\n")
	}
	return b.String()
}

func edgeArrow(t models.ReferenceType) string {
	switch t {
	case models.RefImport:
		return "-->|import|"
	case models.RefRequire:
		return "-->|require|"
	case models.RefInclude:
		return "-.->|include|"
	default:
		return "-.->"
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// mermaidID derives a diagram ID from the node id; paths themselves may
// collide once sanitized.
func (g *Graph) mermaidID(path string) string {
	return "n" + strconv.FormatUint(uint64(g.ids[path]), 10)
}

var labelEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
	"|", "&#124;",
	"[", "&#91;",
	"]", "&#93;",
	"{", "&#123;",
	"}", "&#125;",
	"\n", "<br/>",
)

// EscapeMermaidLabel escapes special characters in labels for Mermaid.
func EscapeMermaidLabel(s string) string {
	return labelEscaper.Replace(s)
}
