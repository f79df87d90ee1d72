package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/panbanda/contrib/pkg/config"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func newApp(stdout, stderr io.Writer) *cli.App {
	// -v is --verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	return &cli.App{
		Name:      "contrib",
		Usage:     "Plot lines of code per author and organization over git history",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Metadata:  make(map[string]interface{}),
		Description: `contrib samples commits along the first-parent history of a repository,
runs git blame on every file of each configured part at each sample, and
plots how many surviving lines each author and organization owns over time.

Blame results are cached under the cache directory, so repeated runs only
index commits they have not seen before.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Value:   config.DefaultFile,
				Usage:   "Path to the configuration file (YAML, TOML, or JSON)",
				EnvVars: []string{"CONTRIB_FILE"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every git command (disables the progress bar)",
				EnvVars: []string{"CONTRIB_VERBOSE"},
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   runtime.NumCPU(),
				Usage:   "Number of parallel blame jobs",
				EnvVars: []string{"CONTRIB_JOBS"},
			},
			&cli.IntFlag{
				Name:    "samples",
				Aliases: []string{"s"},
				Value:   50,
				Usage:   "Number of commits to sample, evenly spaced in time (0 uses every commit)",
				EnvVars: []string{"CONTRIB_SAMPLES"},
			},
			&cli.IntFlag{
				Name:    "fuzz",
				Value:   10,
				Usage:   "Snap samples onto indexed commits within this percent of the average gap (0 disables)",
				EnvVars: []string{"CONTRIB_FUZZ"},
			},
			&cli.BoolFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Build the index and exit without plotting",
			},
			&cli.IntFlag{
				Name:    "topn",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Number of top contributors shown in plots",
				EnvVars: []string{"CONTRIB_TOPN"},
			},
			&cli.StringFlag{
				Name:    "format",
				Value:   "html",
				Usage:   "Plot format: html, json, yaml, toon, markdown, or text",
				EnvVars: []string{"CONTRIB_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Value:   ".",
				Usage:   "Directory plots are written to",
				EnvVars: []string{"CONTRIB_OUTPUT_DIR"},
			},
			&cli.BoolFlag{
				Name:    "update-org-map",
				Aliases: []string{"u"},
				Usage:   "Add authors missing from the org map and exit",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: func(c *cli.Context) error {
			if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
				cpuFile, err := os.Create(pprofPrefix + ".cpu.pprof")
				if err != nil {
					return fmt.Errorf("failed to create CPU profile: %w", err)
				}
				if err := pprof.StartCPUProfile(cpuFile); err != nil {
					cpuFile.Close()
					return fmt.Errorf("failed to start CPU profile: %w", err)
				}
				c.App.Metadata["pprofCPU"] = cpuFile
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if pprofPrefix := c.String("pprof"); pprofPrefix != "" {
				pprof.StopCPUProfile()
				if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
					cpuFile.Close()
					color.Green("CPU profile written to %s.cpu.pprof", pprofPrefix)
				}

				memFile, err := os.Create(pprofPrefix + ".mem.pprof")
				if err != nil {
					return fmt.Errorf("failed to create memory profile: %w", err)
				}
				defer memFile.Close()

				runtime.GC()
				if err := pprof.WriteHeapProfile(memFile); err != nil {
					return fmt.Errorf("failed to write memory profile: %w", err)
				}
				color.Green("Memory profile written to %s.mem.pprof", pprofPrefix)
			}
			return nil
		},
		Action: runPlot,
		Commands: []*cli.Command{
			plotCmd(),
			indexCmd(),
			updateOrgMapCmd(),
			configCmd(),
			cacheCmd(),
			mcpCmd(),
		},
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
