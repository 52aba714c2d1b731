package reachability

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/refgraph/pkg/analyzer/graph"
	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/rules"
)

func build(t *testing.T, paths []string, edges ...[2]string) *graph.Graph {
	t.Helper()
	g := graph.New(paths)
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1], models.RefImport))
	}
	return g
}

func nodes(paths ...string) []models.FileNode {
	out := make([]models.FileNode, len(paths))
	for i, p := range paths {
		out[i] = models.FileNode{Path: p, Size: int64(10 * (i + 1)), Source: true}
	}
	return out
}

func TestAnalyze_Chain(t *testing.T) {
	paths := []string{"main.js", "a.js", "b.js", "c.js"}
	g := build(t, paths, [2]string{"main.js", "a.js"}, [2]string{"a.js", "b.js"})

	r := Analyze(g, []string{"main.js"})
	assert.True(t, r.Reachable("main.js"))
	assert.True(t, r.Reachable("b.js"))
	assert.False(t, r.Reachable("c.js"))
	assert.False(t, r.Reachable("nope.js"))
	assert.Equal(t, uint64(3), r.Count())
	assert.Equal(t, []string{"main.js", "a.js", "b.js"}, r.PathTo("b.js"))
	assert.Equal(t, []string{"main.js"}, r.PathTo("main.js"))
	assert.Nil(t, r.PathTo("c.js"))
}

func TestAnalyze_CyclesTerminate(t *testing.T) {
	paths := []string{"main.js", "a.js", "b.js"}
	g := build(t, paths,
		[2]string{"main.js", "a.js"},
		[2]string{"a.js", "b.js"},
		[2]string{"b.js", "a.js"},
		[2]string{"b.js", "b.js"},
	)
	r := Analyze(g, []string{"main.js"})
	assert.Equal(t, uint64(3), r.Count())
}

func TestAnalyze_UnknownAndDuplicateEntries(t *testing.T) {
	g := build(t, []string{"a.js", "b.js"})
	r := Analyze(g, []string{"missing.js", "b.js", "b.js"})
	assert.Equal(t, []string{"b.js"}, r.Entries())
	assert.True(t, r.IsEntry("b.js"))
	assert.False(t, r.IsEntry("a.js"))
	assert.Equal(t, uint64(1), r.Count())
}

func TestAnalyze_ShortestPath(t *testing.T) {
	paths := []string{"main.js", "a.js", "b.js", "c.js", "target.js"}
	g := build(t, paths,
		[2]string{"main.js", "a.js"},
		[2]string{"a.js", "b.js"},
		[2]string{"b.js", "target.js"},
		[2]string{"main.js", "c.js"},
		[2]string{"c.js", "target.js"},
	)
	r := Analyze(g, []string{"main.js"})
	assert.Len(t, r.PathTo("target.js"), 3)
}

func TestClassify(t *testing.T) {
	files := nodes("main.js", "used.js", "orphan.js", "island_a.js", "island_b.js", "self.js", "docs/guide.js", "broken.js")
	files = append(files, models.FileNode{Path: "logo.png", Size: 99})

	g := build(t, []string{"main.js", "used.js", "orphan.js", "island_a.js", "island_b.js", "self.js", "docs/guide.js", "broken.js", "logo.png"},
		[2]string{"main.js", "used.js"},
		[2]string{"main.js", "logo.png"},
		[2]string{"island_a.js", "island_b.js"},
		[2]string{"self.js", "self.js"},
	)
	r := Analyze(g, []string{"main.js"})

	unused := r.Classify(files, Candidates{
		Analyzed:    func(p string) bool { return p != "broken.js" },
		NeverUnused: rules.MustCompile([]string{"docs/**"}),
	})

	assert.Equal(t, []models.UnusedFile{
		{FilePath: "orphan.js", Reason: models.ReasonNoReferences, FileSize: 30},
		{FilePath: "island_a.js", Reason: models.ReasonUnreachable, FileSize: 40},
		{FilePath: "island_b.js", Reason: models.ReasonUnreachable, FileSize: 50},
		{FilePath: "self.js", Reason: models.ReasonNoReferences, FileSize: 60},
	}, unused)
}

func TestClassify_EntryWithoutEdges(t *testing.T) {
	files := nodes("index.js")
	g := build(t, []string{"index.js"})
	r := Analyze(g, []string{"index.js"})
	assert.Empty(t, r.Classify(files, Candidates{}))
}

func TestClassify_NoEntries(t *testing.T) {
	files := nodes("a.js", "b.js")
	g := build(t, []string{"a.js", "b.js"}, [2]string{"a.js", "b.js"})
	r := Analyze(g, nil)
	unused := r.Classify(files, Candidates{})
	require.Len(t, unused, 2)
	assert.Equal(t, models.ReasonUnreachable, unused[0].Reason)
	assert.Equal(t, models.ReasonUnreachable, unused[1].Reason)
}

func BenchmarkAnalyze(b *testing.B) {
	const n = 50000
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("f%05d.js", i)
	}
	g := graph.New(paths)
	for i := 1; i < n; i++ {
		_ = g.AddEdge(paths[i/2], paths[i], models.RefImport)
		_ = g.AddEdge(paths[i], paths[i/3], models.RefImport)
	}
	b.ResetTimer()
	for b.Loop() {
		Analyze(g, []string{paths[0]})
	}
}
