package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/panbanda/contrib/internal/engine"
	"github.com/panbanda/contrib/internal/fileproc"
	"github.com/panbanda/contrib/internal/plot"
	"github.com/panbanda/contrib/internal/progress"
	"github.com/panbanda/contrib/internal/vcs"
	"github.com/panbanda/contrib/pkg/config"
	"github.com/urfave/cli/v2"
)

var plotFormats = []string{plot.FormatHTML, "json", "yaml", "toon", "markdown", "text"}

func plotCmd() *cli.Command {
	return &cli.Command{
		Name:  "plot",
		Usage: "Index sampled commits and plot contributions per part (default)",
		Description: `Writes loc-in-<part>-by-<author|organization>.<format> for every
configured part, plus a .json file listing the final line count of every
contributor. Organization plots are skipped when no org map is configured.`,
		Action: runPlot,
	}
}

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:   "index",
		Usage:  "Index sampled commits without plotting",
		Action: runIndex,
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("file"))
}

func openEnv(c *cli.Context) (*engine.Env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	verbose := c.Bool("verbose")
	var sink fileproc.ProgressSink = progress.Nop{}
	if !verbose && c.App.ErrWriter == os.Stderr && progress.Interactive(os.Stderr) {
		sink = progress.NewBlames(os.Stderr)
	}

	return engine.NewEnv(cfg, engine.Options{
		Logger:   newLogger(c.App.ErrWriter, verbose),
		Out:      c.App.Writer,
		Progress: sink,
		Jobs:     c.Int("jobs"),
	})
}

// signalContext is cancelled on SIGINT or SIGTERM, which stops in-flight
// git processes.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// buildIndex lists the history selected by the flags and indexes it.
func buildIndex(ctx context.Context, c *cli.Context, env *engine.Env) (*engine.Indexer, []vcs.Commit, error) {
	ix, err := engine.NewIndexer(env)
	if err != nil {
		return nil, nil, err
	}
	hist, err := ix.History(ctx, c.Int("samples"), c.Int("fuzz"))
	if err != nil {
		return nil, nil, err
	}
	if err := ix.Build(ctx, hist); err != nil {
		return nil, nil, err
	}
	return ix, hist, nil
}

func runIndex(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	env, err := openEnv(c)
	if err != nil {
		return err
	}
	_, _, err = buildIndex(ctx, c, env)
	return err
}

func runPlot(c *cli.Context) error {
	if c.Bool("update-org-map") {
		return runUpdateOrgMap(c)
	}
	if c.Bool("index") {
		return runIndex(c)
	}

	format := c.String("format")
	if !slices.Contains(plotFormats, format) {
		return fmt.Errorf("unknown format %q (use one of %v)", format, plotFormats)
	}
	dir := c.String("output-dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	env, err := openEnv(c)
	if err != nil {
		return err
	}
	ix, hist, err := buildIndex(ctx, c, env)
	if err != nil {
		return err
	}

	for _, part := range ix.Parts() {
		for _, by := range []engine.By{engine.ByAuthor, engine.ByOrganization} {
			if by == engine.ByOrganization && len(env.Config.OrgMap) == 0 {
				env.Status("No orgmap specified. Skipping.")
				continue
			}
			s, err := ix.Series(ctx, part, by, hist)
			if err != nil {
				return err
			}
			env.Status("Creating plot: %s", plot.FileName(part, by, format))
			if _, err := plot.Write(dir, s, format, c.Int("topn")); err != nil {
				return err
			}
		}
	}
	return nil
}
