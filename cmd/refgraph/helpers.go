package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/internal/cache"
	"github.com/panbanda/refgraph/internal/output"
	"github.com/panbanda/refgraph/internal/remote"
	"github.com/panbanda/refgraph/pkg/analyzer/references"
	"github.com/panbanda/refgraph/pkg/config"
)

// getPath returns the positional argument at i, defaulting to ".".
func getPath(c *cli.Context, i int) string {
	if c.Args().Len() > i {
		return c.Args().Get(i)
	}
	return "."
}

// analysisFlags are shared by every command that runs an analysis.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "entry",
			Aliases: []string{"e"},
			Usage:   "Entry-point glob (repeatable; replaces configured patterns)",
		},
		&cli.StringSliceFlag{
			Name:  "never-unused",
			Usage: "Glob of files never reported unused (repeatable; replaces configured patterns)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Worker goroutines (0 = number of CPUs)",
		},
		&cli.Int64Flag{
			Name:  "max-file-size",
			Usage: "Skip files larger than this many bytes",
		},
		&cli.DurationFlag{
			Name:  "read-timeout",
			Usage: "Per-file read deadline",
		},
		&cli.BoolFlag{
			Name:  "cache",
			Usage: "Cache extracted references between runs",
		},
	}
}

// remoteFlags control how a repository URL argument is cloned.
func remoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "shallow",
			Value: true,
			Usage: "Clone remote repositories with depth 1",
		},
	}
}

// resolveRoot returns a local directory for arg. A repository URL or
// owner/repo[@ref] is cloned first; cleanup removes the clone.
func resolveRoot(c *cli.Context, arg string) (root string, cleanup func(), err error) {
	src, err := remote.Parse(arg)
	if err != nil {
		return "", nil, err
	}
	if src == nil {
		return arg, func() {}, nil
	}

	color.New(color.FgCyan).Fprintf(os.Stderr, "Cloning %s...\n", src.URL)
	if err := src.Clone(c.Context, os.Stderr, c.Bool("shallow")); err != nil {
		return "", nil, err
	}
	return src.CloneDir, src.Cleanup, nil
}

// outputFlags select the report format and destination.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
	}
}

// loadConfig loads --config, or the config file found in root, and applies
// the analysis flags on top.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(root)
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("workers") {
		cfg.Limits.Workers = c.Int("workers")
	}
	if c.IsSet("max-file-size") {
		cfg.Limits.MaxFileSize = c.Int64("max-file-size")
	}
	if c.IsSet("read-timeout") {
		cfg.Limits.ReadTimeout = c.Duration("read-timeout").String()
	}
	if c.IsSet("cache") {
		cfg.Cache.Enabled = c.Bool("cache")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

// newLogger returns a text logger on w at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newAnalyzer builds the analyzer for cfg and the rule flags of c.
func newAnalyzer(c *cli.Context, cfg *config.Config, root string, logger *slog.Logger) (*references.Analyzer, error) {
	opts := []references.Option{
		references.WithConfig(cfg),
		references.WithLogger(logger),
	}
	if entries := c.StringSlice("entry"); len(entries) > 0 {
		opts = append(opts, references.WithEntryPoints(entries))
	}
	if never := c.StringSlice("never-unused"); len(never) > 0 {
		opts = append(opts, references.WithNeverUnused(never))
	}
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		ch, err := cache.New(dir, cfg.Cache.TTL, true)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, references.WithCache(ch))
	}
	return references.New(opts...), nil
}

// newFormatter opens the report destination. Color follows the config and
// the terminal.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	return output.NewFormatter(
		output.ParseFormat(cfg.Output.Format),
		c.String("output"),
		cfg.Output.Color && !color.NoColor,
	)
}

// elapsed formats a duration for status lines.
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
