package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/internal/locator"
	"github.com/panbanda/refgraph/internal/output"
	"github.com/panbanda/refgraph/pkg/analyzer/references"
)

func explainCmd() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Explain why a file is used or unused",
		ArgsUsage: "<file> [path|repo]",
		Description: `Shows how a file was classified: the entry-point rule it matches, the
shortest chain of references from an entry point, the files it references
and is referenced by, and its broken references.

<file> may be a path relative to the root, a glob, a file name or a path
suffix. An ambiguous value lists the candidates.

Examples:
  refgraph explain src/utils/date.ts
  refgraph explain date.ts
  refgraph explain 'src/**/legacy*.js' ./web`,
		Flags:  append(append(analysisFlags(), remoteFlags()...), outputFlags()...),
		Action: runExplainCmd,
	}
}

func runExplainCmd(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("explain requires a file argument")
	}
	focus := c.Args().First()
	root, cleanup, err := resolveRoot(c, getPath(c, 1))
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

	path, err := locate(report, focus)
	if err != nil {
		return err
	}
	ex, err := report.Explain(path)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(&output.ExplanationView{Explanation: ex})
}

// locate resolves focus to one canonical path of the analyzed tree.
func locate(report *references.Report, focus string) (string, error) {
	result, err := locator.Locate(focus, report.Graph.Paths(),
		locator.WithRoot(report.Tree.Root()),
		locator.WithMaxCandidates(20),
	)
	switch {
	case errors.Is(err, locator.ErrAmbiguousMatch):
		return "", fmt.Errorf("%q matches several files:\n  %s", focus, strings.Join(result.Candidates, "\n  "))
	case err != nil:
		return "", fmt.Errorf("%q: %w", focus, err)
	}
	return result.Path, nil
}
