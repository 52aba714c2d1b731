// Package reachability computes which files are reachable from entry points
// and classifies the rest as unused.
package reachability

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/refgraph/pkg/analyzer/graph"
	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/rules"
)

const noParent = ^uint32(0)

// Result is the outcome of one traversal.
type Result struct {
	g       *graph.Graph
	entries *roaring.Bitmap
	visited *roaring.Bitmap
	parent  []uint32
}

// Analyze runs a breadth-first traversal from entries. Entry paths that are
// not graph nodes are ignored. Each node is visited at most once, so cycles
// terminate.
func Analyze(g *graph.Graph, entries []string) *Result {
	r := &Result{
		g:       g,
		entries: roaring.New(),
		visited: roaring.New(),
		parent:  make([]uint32, g.NodeCount()),
	}
	for i := range r.parent {
		r.parent[i] = noParent
	}

	queue := make([]uint32, 0, len(entries))
	for _, e := range entries {
		id, ok := g.ID(e)
		if !ok || r.visited.Contains(id) {
			continue
		}
		r.entries.Add(id)
		r.visited.Add(id)
		queue = append(queue, id)
	}
	slices.Sort(queue)

	// index-based queue avoids reslicing
	for head := 0; head < len(queue); head++ {
		current := queue[head]
		for _, next := range g.Successors(current) {
			if r.visited.CheckedAdd(next) {
				r.parent[next] = current
				queue = append(queue, next)
			}
		}
	}
	return r
}

// Reachable reports whether path was visited.
func (r *Result) Reachable(path string) bool {
	id, ok := r.g.ID(path)
	return ok && r.visited.Contains(id)
}

// IsEntry reports whether path is one of the entry points.
func (r *Result) IsEntry(path string) bool {
	id, ok := r.g.ID(path)
	return ok && r.entries.Contains(id)
}

// Count returns the number of reachable nodes, entries included.
func (r *Result) Count() uint64 { return r.visited.GetCardinality() }

// Entries returns the entry points that are graph nodes, sorted.
func (r *Result) Entries() []string {
	out := make([]string, 0, r.entries.GetCardinality())
	it := r.entries.Iterator()
	for it.HasNext() {
		out = append(out, r.g.Path(it.Next()))
	}
	slices.Sort(out)
	return out
}

// PathTo returns a shortest reference chain from an entry point to path,
// entry first. It returns nil when path is unreachable.
func (r *Result) PathTo(path string) []string {
	id, ok := r.g.ID(path)
	if !ok || !r.visited.Contains(id) {
		return nil
	}
	var chain []string
	for cur := id; cur != noParent; cur = r.parent[cur] {
		chain = append(chain, r.g.Path(cur))
	}
	slices.Reverse(chain)
	return chain
}

// Candidates decides which files may be reported unused.
type Candidates struct {
	// Analyzed reports whether a file was read and extracted successfully.
	Analyzed func(path string) bool
	// NeverUnused is the allow-list of files never reported.
	NeverUnused *rules.Set
}

// Classify returns the unused files among files: analyzed, not an entry
// point, not allow-listed and not reachable. A file with no edge to or from
// any other file has no references; any other unreachable file sits in a
// cluster no entry point leads into.
// The result follows the order of files.
func (r *Result) Classify(files []models.FileNode, c Candidates) []models.UnusedFile {
	out := []models.UnusedFile{}
	for _, f := range files {
		if !f.Source || (c.Analyzed != nil && !c.Analyzed(f.Path)) {
			continue
		}
		if r.Reachable(f.Path) || r.IsEntry(f.Path) || c.NeverUnused.Match(f.Path) {
			continue
		}
		reason := models.ReasonUnreachable
		if r.g.Isolated(f.Path) {
			reason = models.ReasonNoReferences
		}
		out = append(out, models.UnusedFile{FilePath: f.Path, Reason: reason, FileSize: f.Size})
	}
	return out
}
