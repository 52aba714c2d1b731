package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/internal/output"
	"github.com/panbanda/refgraph/internal/progress"
	"github.com/panbanda/refgraph/pkg/analyzer"
	"github.com/panbanda/refgraph/pkg/analyzer/references"
	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
)

// errFindings is returned when --fail-on matches the result.
var errFindings = errors.New("findings reported")

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Report unused files and broken references",
		ArgsUsage: "[path|repo]",
		Description: `Extracts references from every source file under path, resolves them
against the tree, and reports files no entry point reaches and references
whose target is missing. path may also be a git URL or owner/repo[@ref],
which is cloned to a temporary directory first.

Examples:
  refgraph analyze
  refgraph analyze --entry 'src/main.ts' --entry 'scripts/*.sh' ./web
  refgraph analyze --format json --fail-on broken
  refgraph analyze vercel/next.js@canary`,
		Flags: append(append(append(analysisFlags(), remoteFlags()...), outputFlags()...),
			&cli.StringFlag{
				Name:  "fail-on",
				Value: "none",
				Usage: "Exit non-zero when findings exist: none, broken, unused, any",
			},
		),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	failOn := c.String("fail-on")
	if err := validateFailOn(failOn); err != nil {
		return err
	}

	root, cleanup, err := resolveRoot(c, getPath(c, 0))
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, a, err := prepare(c, root)
	if err != nil {
		return err
	}

	start := time.Now()
	report, err := runReport(c, a, root)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(&output.ResultView{Result: report.Result, Verbose: cfg.Output.Verbose}); err != nil {
		return err
	}
	if cfg.Output.Verbose && formatter.Format() == output.FormatText {
		formatter.Info("Analyzed %d files in %s", report.Result.TotalFiles, elapsed(start))
	}

	return checkFailOn(failOn, report.Result)
}

// prepare loads the configuration for root and builds the analyzer.
func prepare(c *cli.Context, root string) (*config.Config, *references.Analyzer, error) {
	cfg, err := loadConfig(c, root)
	if err != nil {
		return nil, nil, err
	}
	a, err := newAnalyzer(c, cfg, root, newLogger(os.Stderr, cfg.Output.Verbose))
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}

// runReport runs the analysis with one progress bar per phase on stderr.
func runReport(c *cli.Context, a *references.Analyzer, root string) (*references.Report, error) {
	phases := progress.NewPhases(os.Stderr)
	phases.Scanning()
	ctx := analyzer.WithTracker(c.Context, analyzer.NewTracker(phases.Update))

	report, err := a.Run(ctx, root)
	if err != nil {
		phases.Fail(err)
		return nil, err
	}
	phases.Finish()
	return report, nil
}

func validateFailOn(mode string) error {
	switch mode {
	case "none", "broken", "unused", "any":
		return nil
	}
	return fmt.Errorf("--fail-on must be none, broken, unused or any (got %q)", mode)
}

// checkFailOn returns errFindings when the result has findings of the
// kind mode names.
func checkFailOn(mode string, r *models.AnalysisResult) error {
	unused, broken := len(r.UnusedFiles), len(r.BrokenReferences)
	switch {
	case (mode == "unused" || mode == "any") && unused > 0:
		return fmt.Errorf("%w: %d unused files", errFindings, unused)
	case (mode == "broken" || mode == "any") && broken > 0:
		return fmt.Errorf("%w: %d broken references", errFindings, broken)
	}
	return nil
}
