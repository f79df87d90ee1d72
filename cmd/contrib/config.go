package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/contrib/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[file]",
				Description: `Validates a contrib configuration file against its schema, checks that
every pattern compiles and that the org map, when configured, is valid.

Examples:
  contrib config validate                 # Validates contrib.yaml
  contrib config validate spack.yaml      # Validates a specific file`,
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the configuration with defaults applied and paths resolved.

Examples:
  contrib config show
  contrib -f spack.yaml config show`,
				Action: runConfigShow,
			},
			{
				Name:  "init",
				Usage: "Create a starter configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: config.DefaultFile, Usage: "Output file path"},
					&cli.StringFlag{Name: "repo", Value: ".", Usage: "Repository to analyze, relative to the configuration file"},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite existing config file"},
				},
				Action: runConfigInit,
			},
		},
	}
}

func runConfigValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = c.String("file")
	}

	if _, err := config.Load(path); err != nil {
		color.New(color.FgRed).Fprintln(c.App.Writer, "Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Configuration valid: %s\n", path)
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", cfg.Path)
	fmt.Fprint(c.App.Writer, string(content))
	return nil
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig(c.String("repo"))
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Created %s\n", outputPath)
	fmt.Fprintln(c.App.Writer, "Edit the parts to split the repository into the areas you want to plot.")
	return nil
}

func generateDefaultConfig(repo string) (string, error) {
	content, err := yaml.Marshal(config.Default(repo))
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# contrib configuration\n")
	buf.WriteString("# parts map a name to regular expressions matched against file paths.\n\n")
	buf.Write(content)
	return buf.String(), nil
}
