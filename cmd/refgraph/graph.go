package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/internal/output"
	"github.com/panbanda/refgraph/pkg/analyzer/graph"
	"github.com/panbanda/refgraph/pkg/analyzer/references"
	"github.com/panbanda/refgraph/pkg/models"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"dag"},
		Usage:     "Show the reference graph (PageRank table or Mermaid)",
		ArgsUsage: "[path|repo]",
		Flags: append(append(append(analysisFlags(), remoteFlags()...), outputFlags()...),
			&cli.BoolFlag{
				Name:  "mermaid",
				Usage: "Render a Mermaid flowchart instead of the ranking",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 20,
				Usage: "Files to rank (0 = all)",
			},
			&cli.IntFlag{
				Name:  "max-nodes",
				Value: 100,
				Usage: "Nodes to draw in the Mermaid chart (0 = all)",
			},
		),
		Action: runGraphCmd,
	}
}

// graphData is the serialized form of the graph command.
type graphData struct {
	Nodes  int                   `json:"nodes" toon:"nodes"`
	Edges  []models.ResolvedEdge `json:"edges" toon:"edges"`
	Ranks  []graph.Rank          `json:"ranks" toon:"ranks"`
	Cycles [][]string            `json:"cycles" toon:"cycles"`
}

func runGraphCmd(c *cli.Context) error {
	root, cleanup, err := resolveRoot(c, getPath(c, 0))
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, a, err := prepare(c, root)
	if err != nil {
		return err
	}
	report, err := runReport(c, a, root)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	g := report.Graph
	ranks := g.PageRank(c.Int("top"))

	switch formatter.Format() {
	case output.FormatJSON, output.FormatTOON:
		return formatter.Output(&graphData{
			Nodes:  g.NodeCount(),
			Edges:  g.Edges(),
			Ranks:  ranks,
			Cycles: report.Result.Cycles,
		})
	}

	if c.Bool("mermaid") {
		opts := graph.DefaultMermaidOptions()
		opts.MaxNodes = c.Int("max-nodes")
		opts.Status = nodeStatus(report)
		w := formatter.Writer()
		fmt.Fprintln(w, "```mermaid")
		fmt.Fprint(w, g.ToMermaid(opts))
		fmt.Fprintln(w, "```")
		return nil
	}

	rows := make([][]string, len(ranks))
	for i, r := range ranks {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			r.Path,
			fmt.Sprintf("%.4f", r.Score),
			strconv.Itoa(r.InDegree),
			strconv.Itoa(g.OutDegree(r.Path)),
		}
	}
	return formatter.Output(&output.Report{
		Title: "Reference Graph",
		Sections: []output.Renderable{
			&output.Section{Content: fmt.Sprintf("Files: %d\nEdges: %d\nCycles: %d\n",
				g.NodeCount(), g.EdgeCount(), len(report.Result.Cycles))},
			output.NewTable("Top Files by PageRank", []string{"#", "File", "PageRank", "In", "Out"}, rows, nil, ranks),
		},
	})
}

// nodeStatus marks entry points and unused files for the Mermaid chart.
func nodeStatus(report *references.Report) map[string]graph.NodeStatus {
	status := make(map[string]graph.NodeStatus)
	for _, e := range report.Result.EntryPoints {
		status[e] = graph.StatusEntry
	}
	for _, u := range report.Result.UnusedFiles {
		status[u.FilePath] = graph.StatusUnused
	}
	return status
}
