package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/contrib/internal/cache"
	"github.com/panbanda/contrib/internal/output"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the blame cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cached tables and blames",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the statistics to a file instead of stdout",
					},
				},
				Action: runCacheStats,
			},
			{
				Name:   "clean",
				Usage:  "Remove temporary files left by interrupted runs",
				Action: runCacheClean,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return cache.New(cfg.Contrib.Cache)
}

func runCacheStats(c *cli.Context) error {
	store, err := openCache(c)
	if err != nil {
		return err
	}
	st, err := store.GetStats()
	if err != nil {
		return err
	}

	format := output.ParseFormat(c.String("format"))
	f := output.NewWriterFormatter(format, c.App.Writer, false)
	if path := c.String("output"); path != "" {
		f = output.NewFileFormatter(format, path)
	}
	if err := f.Output(output.CacheStats(store.Dir(), st)); err != nil {
		return err
	}
	return f.Close()
}

func runCacheClean(c *cli.Context) error {
	store, err := openCache(c)
	if err != nil {
		return err
	}
	removed, err := cache.CleanStale(store.Dir(), 0)
	if err != nil {
		return err
	}
	status(c, "Removed %d stale temporary files from '%s'.", removed, store.Dir())
	return nil
}

var arrow = color.New(color.FgGreen, color.Bold)

func status(c *cli.Context, format string, args ...any) {
	arrow.Fprint(c.App.Writer, "==> ")
	fmt.Fprintf(c.App.Writer, format+"\n", args...)
}
