package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[path]",
				Description: `Validates a refgraph configuration file against the config schema and
checks every glob pattern.

Examples:
  refgraph config validate                   # Validates the config found in .
  refgraph config validate -c refgraph.toml`,
				Action: runConfigValidate,
			},
			{
				Name:      "show",
				Usage:     "Show the effective configuration",
				ArgsUsage: "[path]",
				Action:    runConfigShow,
			},
		},
	}
}

// configSource returns the config file that applies to root, or "".
func configSource(c *cli.Context, root string) string {
	if path := c.String("config"); path != "" {
		return path
	}
	return config.Find(root)
}

func runConfigValidate(c *cli.Context) error {
	root := getPath(c, 0)
	source := configSource(c, root)
	if source == "" {
		color.Yellow("No config file found. Default configuration is valid.")
		return nil
	}

	if _, err := config.Load(source); err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}
	color.Green("Configuration valid: %s", source)
	return nil
}

func runConfigShow(c *cli.Context) error {
	root := getPath(c, 0)
	source := configSource(c, root)

	cfg := config.DefaultConfig()
	if source != "" {
		loaded, err := config.Load(source)
		if err != nil {
			return err
		}
		cfg = loaded
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(c.App.Writer, string(content))
	return nil
}
