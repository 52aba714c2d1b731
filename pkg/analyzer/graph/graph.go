// Package graph holds the directed file reference graph.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/refgraph/pkg/models"
)

// ErrUnknownNode is returned when an edge endpoint is not a node.
var ErrUnknownNode = errors.New("unknown graph node")

// Graph is a directed graph over a fixed node set. Nodes are identified by
// canonical path and by a dense uint32 id assigned in construction order.
//
// A Graph is built by a single goroutine and is read-only afterwards; reads
// are then safe from any number of goroutines.
type Graph struct {
	paths []string
	ids   map[string]uint32
	out   [][]uint32
	// in holds distinct predecessors other than the node itself.
	in    [][]uint32
	types map[uint64]models.ReferenceType
	edges int
}

// New creates a graph with one node per path. Duplicate paths are ignored.
func New(paths []string) *Graph {
	g := &Graph{
		paths: make([]string, 0, len(paths)),
		ids:   make(map[string]uint32, len(paths)),
		types: make(map[uint64]models.ReferenceType),
	}
	for _, p := range paths {
		if _, dup := g.ids[p]; dup {
			continue
		}
		g.ids[p] = uint32(len(g.paths))
		g.paths = append(g.paths, p)
	}
	g.out = make([][]uint32, len(g.paths))
	g.in = make([][]uint32, len(g.paths))
	return g
}

func edgeKey(from, to uint32) uint64 { return uint64(from)<<32 | uint64(to) }

// AddEdge records source -> target. Duplicate edges are stored once; the
// first reference type seen for a pair is kept. Self-loops are accepted.
func (g *Graph) AddEdge(source, target string, typ models.ReferenceType) error {
	from, ok := g.ids[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, source)
	}
	to, ok := g.ids[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, target)
	}
	key := edgeKey(from, to)
	if _, dup := g.types[key]; dup {
		return nil
	}
	g.types[key] = typ
	g.out[from] = append(g.out[from], to)
	if from != to {
		g.in[to] = append(g.in[to], from)
	}
	g.edges++
	return nil
}

// Neighbors returns the targets of node's outgoing edges.
func (g *Graph) Neighbors(node string) []string {
	id, ok := g.ids[node]
	if !ok {
		return nil
	}
	out := make([]string, len(g.out[id]))
	for i, to := range g.out[id] {
		out[i] = g.paths[to]
	}
	return out
}

// Successors returns the ids of id's outgoing edges. The slice must not be
// modified.
func (g *Graph) Successors(id uint32) []uint32 { return g.out[id] }

// ID returns the id of node.
func (g *Graph) ID(node string) (uint32, bool) {
	id, ok := g.ids[node]
	return id, ok
}

// Path returns the canonical path of id.
func (g *Graph) Path(id uint32) string { return g.paths[id] }

// Paths returns every node path in id order.
func (g *Graph) Paths() []string { return g.paths }

// EdgeType returns the reference type recorded for source -> target.
func (g *Graph) EdgeType(source, target string) (models.ReferenceType, bool) {
	from, ok1 := g.ids[source]
	to, ok2 := g.ids[target]
	if !ok1 || !ok2 {
		return "", false
	}
	t, ok := g.types[edgeKey(from, to)]
	return t, ok
}

// InDegree counts the distinct other nodes referencing node.
func (g *Graph) InDegree(node string) int {
	id, ok := g.ids[node]
	if !ok {
		return 0
	}
	return len(g.in[id])
}

// OutDegree counts the distinct other nodes node references.
func (g *Graph) OutDegree(node string) int {
	id, ok := g.ids[node]
	if !ok {
		return 0
	}
	n := 0
	for _, to := range g.out[id] {
		if to != id {
			n++
		}
	}
	return n
}

// Isolated reports whether node has no edge to or from another node.
func (g *Graph) Isolated(node string) bool {
	return g.InDegree(node) == 0 && g.OutDegree(node) == 0
}

// Referrers returns the distinct other nodes referencing node, sorted.
func (g *Graph) Referrers(node string) []string {
	id, ok := g.ids[node]
	if !ok {
		return nil
	}
	out := make([]string, len(g.in[id]))
	for i, from := range g.in[id] {
		out[i] = g.paths[from]
	}
	sort.Strings(out)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.paths) }

// EdgeCount returns the number of distinct edges, self-loops included.
func (g *Graph) EdgeCount() int { return g.edges }

// Edges returns every distinct edge, sorted by source then target.
func (g *Graph) Edges() []models.ResolvedEdge {
	out := make([]models.ResolvedEdge, 0, g.edges)
	for from, targets := range g.out {
		for _, to := range targets {
			out = append(out, models.ResolvedEdge{
				Source: g.paths[from],
				Target: g.paths[to],
				Type:   g.types[edgeKey(uint32(from), to)],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// directed converts the graph to gonum form. gonum simple graphs reject
// self-loops, which never take part in a cycle of two or more files anyway.
func (g *Graph) directed() *simple.DirectedGraph {
	d := simple.NewDirectedGraph()
	for id := range g.paths {
		d.AddNode(simple.Node(int64(id)))
	}
	for from, targets := range g.out {
		for _, to := range targets {
			if uint32(from) != to {
				d.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(int64(to))})
			}
		}
	}
	return d
}

// Cycles returns the strongly connected components with more than one node.
// Each cycle is sorted, and cycles are ordered by their first path.
func (g *Graph) Cycles() [][]string {
	if g.edges == 0 {
		return nil
	}
	var cycles [][]string
	for _, scc := range topo.TarjanSCC(g.directed()) {
		if len(scc) < 2 {
			continue
		}
		members := make([]string, len(scc))
		for i, n := range scc {
			members[i] = g.paths[n.ID()]
		}
		sort.Strings(members)
		cycles = append(cycles, members)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Rank is a node's PageRank within the reference graph.
type Rank struct {
	Path     string  `json:"path" toon:"path"`
	Score    float64 `json:"score" toon:"score"`
	InDegree int     `json:"inDegree" toon:"inDegree"`
}

// PageRank scores nodes by how central they are to the reference graph and
// returns the top n (all when n <= 0), highest first.
func (g *Graph) PageRank(n int) []Rank {
	if len(g.paths) == 0 {
		return nil
	}
	scores := network.PageRankSparse(g.directed(), 0.85, 1e-6)
	ranks := make([]Rank, 0, len(scores))
	for id, score := range scores {
		p := g.paths[id]
		ranks = append(ranks, Rank{Path: p, Score: score, InDegree: len(g.in[id])})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score > ranks[j].Score
		}
		return ranks[i].Path < ranks[j].Path
	})
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}
