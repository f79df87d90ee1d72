package main

import (
	"fmt"
	"io"

	"github.com/panbanda/contrib/internal/engine"
	"github.com/panbanda/contrib/internal/mcpserver"
	"github.com/panbanda/contrib/pkg/config"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes contribution
series and index status as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "contrib": {
        "command": "contrib",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - contrib_series        Lines of code per author or organization over time
  - contrib_index_status  How much of the sampled history is already indexed`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "manifest", Usage: "Print the server manifest (server.json) and exit"},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := buildManifest(c.App)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(data))
		return nil
	}

	logger := newLogger(c.App.ErrWriter, c.Bool("verbose"))
	jobs := c.Int("jobs")
	open := func(path string) (*engine.Env, error) {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		return engine.NewEnv(cfg, engine.Options{Logger: logger, Out: io.Discard, Jobs: jobs})
	}

	ctx, cancel := signalContext(c)
	defer cancel()
	return mcpserver.NewServer(version, open).Run(ctx)
}
