// Package engine wires configuration, git, the cache and the worker pool
// into indexing runs and produces the per-commit series.
package engine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/panbanda/contrib/internal/cache"
	"github.com/panbanda/contrib/internal/fileproc"
	"github.com/panbanda/contrib/internal/progress"
	"github.com/panbanda/contrib/internal/vcs"
	"github.com/panbanda/contrib/pkg/config"
)

// Env is the context of one run. Every component receives what it needs
// from here instead of reading process-wide state.
type Env struct {
	Config   *config.Config
	Repo     *vcs.Repo
	Client   *vcs.Client
	Cache    *cache.Cache
	Logger   *slog.Logger
	Out      io.Writer
	Progress fileproc.ProgressSink
	Jobs     int
}

// Options tune an Env.
type Options struct {
	Logger   *slog.Logger
	Out      io.Writer
	Progress fileproc.ProgressSink
	// Jobs is the worker pool size; <= 0 means NumCPU.
	Jobs int
	// Runner overrides how git is executed.
	Runner vcs.Runner
}

// NewEnv validates the repository of cfg and prepares the cache.
func NewEnv(cfg *config.Config, opts Options) (*Env, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Progress == nil {
		opts.Progress = progress.Nop{}
	}

	repo, err := vcs.Open(cfg.Contrib.Repo)
	if err != nil {
		return nil, &config.Error{Path: cfg.Path, Err: err}
	}

	runner := opts.Runner
	if runner == nil {
		if err := vcs.CheckGit(); err != nil {
			return nil, err
		}
		runner = vcs.NewExecRunner(repo.Root(), vcs.WithLogger(opts.Logger))
	}

	store, err := cache.New(cfg.Contrib.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", cfg.Contrib.Cache, err)
	}

	return &Env{
		Config:   cfg,
		Repo:     repo,
		Client:   vcs.NewClient(repo.Root(), runner),
		Cache:    store,
		Logger:   opts.Logger,
		Out:      opts.Out,
		Progress: opts.Progress,
		Jobs:     opts.Jobs,
	}, nil
}

var arrow = color.New(color.FgGreen, color.Bold)

// Status prints a "==>" status line.
func (e *Env) Status(format string, args ...any) {
	arrow.Fprint(e.Out, "==> ")
	fmt.Fprintf(e.Out, format+"\n", args...)
}

// Printf prints an unadorned line.
func (e *Env) Printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format, args...)
}
