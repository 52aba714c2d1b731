package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/refgraph/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the reference
analyzer as tools an assistant can call.

To register it with an MCP client, add to its config:
  {
    "mcpServers": {
      "refgraph": {
        "command": "refgraph",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_references   Unused files and broken references
  - explain_reference    Why one file is used or unused`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the server.json registry manifest and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(data))
		return nil
	}

	server := mcpserver.NewServer(version, newLogger(os.Stderr, c.Bool("verbose")))
	if path := c.String("config"); path != "" {
		server.SetConfigPath(path)
	}
	return server.Run(c.Context)
}
