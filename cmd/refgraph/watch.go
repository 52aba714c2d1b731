package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/internal/output"
	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-analyze",
		ArgsUsage: "[path]",
		Flags: append(append(analysisFlags(), outputFlags()...),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-running",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	root := getPath(c, 0)

	cfg, a, err := prepare(c, root)
	if err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(root, cfg, a, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.SetLogger(newLogger(os.Stderr, cfg.Output.Verbose))
	if out := c.String("output"); out != "" {
		watcher.Ignore(out)
	}

	watcher.SetHandler(func(result *models.AnalysisResult, changed []string, err error) {
		formatter, ferr := newFormatter(c, cfg)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ferr)
			return
		}
		defer formatter.Close()

		if err != nil {
			formatter.Error("%v", err)
			return
		}
		if err := formatter.Output(&output.ResultView{Result: result, Verbose: cfg.Output.Verbose}); err != nil {
			formatter.Error("%v", err)
		}
	})

	err = watcher.Start(c.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
