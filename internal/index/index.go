// Package index maintains per-group, per-commit attribution tables backed
// by the on-disk cache. A table is computed at most once per commit and
// then served from memory or disk.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/panbanda/contrib/internal/cache"
	"github.com/panbanda/contrib/internal/fileproc"
	"github.com/panbanda/contrib/pkg/blame"
	"github.com/panbanda/contrib/pkg/counts"
)

// ErrNoBlamer is returned when a table must be computed but no executor
// is attached.
var ErrNoBlamer = errors.New("no blame executor attached")

// Source is the part of the git client the index needs.
type Source interface {
	Resolve(ctx context.Context, rev string) (string, error)
	ListFiles(ctx context.Context, rev string) ([]string, error)
}

// Blamer fans out per-file blame jobs. *fileproc.Executor implements it.
type Blamer interface {
	Run(ctx context.Context, label string, jobs []fileproc.Job, consume func(fileproc.Job, string) error) error
}

// Index serves attribution tables for one group.
type Index struct {
	group  Group
	store  *cache.Cache
	source Source
	ignore blame.Ignore
	logger *slog.Logger

	mu     sync.Mutex
	blamer Blamer
	tables map[string]counts.Table
}

// Option configures an Index.
type Option func(*Index)

// WithIgnore sets the predicate for lines excluded from counts.
func WithIgnore(ignore blame.Ignore) Option {
	return func(ix *Index) {
		ix.ignore = ignore
	}
}

// WithLogger sets the logger for cache warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		ix.logger = logger
	}
}

// WithBlamer attaches the executor used to compute missing tables.
func WithBlamer(b Blamer) Option {
	return func(ix *Index) {
		ix.blamer = b
	}
}

// Open prepares the index of group. Temporary files abandoned in the
// group's directory are removed, and a warning is logged when existing
// tables were computed from different patterns.
func Open(group Group, store *cache.Cache, source Source, opts ...Option) (*Index, error) {
	ix := &Index{
		group:  group,
		store:  store,
		source: source,
		ignore: blame.Default(),
		logger: slog.New(slog.DiscardHandler),
		tables: make(map[string]counts.Table),
	}
	for _, opt := range opts {
		opt(ix)
	}

	dir := store.GroupDir(group.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if n, err := cache.CleanStale(dir, cache.StaleAge); err != nil {
		ix.logger.Warn("cleaning stale cache files", "group", group.Name, "error", err)
	} else if n > 0 {
		ix.logger.Info("removed stale cache files", "group", group.Name, "count", n)
	}

	same, err := store.CheckFingerprint(group.Name, group.Patterns)
	if err != nil {
		ix.logger.Warn("checking group patterns", "group", group.Name, "error", err)
	} else if !same {
		ix.logger.Warn("cached tables were computed with different patterns; delete the group directory to recompute",
			"group", group.Name, "dir", dir)
	}
	return ix, nil
}

// Name returns the group name.
func (ix *Index) Name() string {
	return ix.group.Name
}

// Group returns the group definition.
func (ix *Index) Group() Group {
	return ix.group
}

// SetBlamer attaches or detaches (nil) the executor.
func (ix *Index) SetBlamer(b Blamer) {
	ix.mu.Lock()
	ix.blamer = b
	ix.mu.Unlock()
}

// Contains reports whether a usable table for rev is in memory or on
// disk. An entry that fails to decode does not count, so it is picked up
// again while an executor is attached.
func (ix *Index) Contains(ctx context.Context, rev string) (bool, error) {
	hash, err := ix.source.Resolve(ctx, rev)
	if err != nil {
		return false, err
	}

	ix.mu.Lock()
	_, ok := ix.tables[hash]
	ix.mu.Unlock()
	if ok {
		return true, nil
	}

	table, err := ix.load(ix.store.TablePath(ix.group.Name, hash))
	switch {
	case err == nil:
		ix.mu.Lock()
		ix.tables[hash] = table
		ix.mu.Unlock()
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case errors.Is(err, cache.ErrCorrupt):
		ix.logger.Warn("corrupt cache entry will be recomputed", "group", ix.group.Name, "commit", hash, "error", err)
		return false, nil
	}
	return false, err
}

// Get returns the attribution table of rev, computing and persisting it
// when neither memory nor disk has it. The returned table is a copy.
func (ix *Index) Get(ctx context.Context, rev string) (counts.Table, error) {
	hash, err := ix.source.Resolve(ctx, rev)
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	table, ok := ix.tables[hash]
	blamer := ix.blamer
	ix.mu.Unlock()
	if ok {
		return table.Clone(), nil
	}

	path := ix.store.TablePath(ix.group.Name, hash)
	table, err = ix.load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		table, err = ix.compute(ctx, blamer, hash, path)
	case errors.Is(err, cache.ErrCorrupt):
		ix.logger.Warn("recomputing corrupt cache entry", "group", ix.group.Name, "commit", hash, "error", err)
		table, err = ix.compute(ctx, blamer, hash, path)
	}
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	ix.tables[hash] = table
	ix.mu.Unlock()
	return table.Clone(), nil
}

func (ix *Index) load(path string) (counts.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := counts.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cache.ErrCorrupt, path, err)
	}
	return table, nil
}

func (ix *Index) compute(ctx context.Context, blamer Blamer, hash, path string) (counts.Table, error) {
	if blamer == nil {
		return nil, fmt.Errorf("%s at %s: %w", ix.group.Name, hash, ErrNoBlamer)
	}

	files, err := ix.source.ListFiles(ctx, hash)
	if err != nil {
		return nil, err
	}
	matched := ix.group.Match(files)

	jobs := make([]fileproc.Job, len(matched))
	for i, f := range matched {
		jobs[i] = fileproc.Job{Commit: hash, Path: f, CacheFile: ix.store.BlamePath(f, hash)}
	}

	table := counts.New()
	err = blamer.Run(ctx, ix.group.Name, jobs, func(_ fileproc.Job, output string) error {
		table.Merge(blame.Count(output, ix.ignore))
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := table.Encode()
	if err != nil {
		return nil, err
	}
	if err := cache.WriteAtomic(path, data, cache.TempTag()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return table, nil
}

// Cached returns the hashes with a table on disk.
func (ix *Index) Cached() ([]string, error) {
	return ix.store.Commits(ix.group.Name)
}
