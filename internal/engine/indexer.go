package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/contrib/internal/fileproc"
	"github.com/panbanda/contrib/internal/index"
	"github.com/panbanda/contrib/internal/vcs"
	"github.com/panbanda/contrib/pkg/blame"
	"github.com/panbanda/contrib/pkg/history"
)

// Indexer owns the per-part indexes of one run.
type Indexer struct {
	env     *Env
	indexes []*index.Index
	byName  map[string]*index.Index
}

// NewIndexer opens an index for every configured part.
func NewIndexer(env *Env) (*Indexer, error) {
	cfg := env.Config.Contrib
	ignore, err := blame.Patterns(cfg.Ignore...)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{env: env, byName: make(map[string]*index.Index)}
	for _, name := range env.Config.PartNames() {
		group, err := index.NewGroup(name, cfg.Parts[name])
		if err != nil {
			return nil, err
		}
		idx, err := index.Open(group, env.Cache, env.Client,
			index.WithIgnore(ignore),
			index.WithLogger(env.Logger))
		if err != nil {
			return nil, fmt.Errorf("opening index %s: %w", name, err)
		}
		ix.indexes = append(ix.indexes, idx)
		ix.byName[name] = idx
	}
	return ix, nil
}

// Parts returns the part names in index order.
func (ix *Indexer) Parts() []string {
	names := make([]string, len(ix.indexes))
	for i, idx := range ix.indexes {
		names[i] = idx.Name()
	}
	return names
}

// Index returns the index of a part.
func (ix *Indexer) Index(part string) (*index.Index, bool) {
	idx, ok := ix.byName[part]
	return idx, ok
}

// History lists the commits to index, oldest first. With samples == 0
// the whole first-parent history is used; otherwise about samples commits
// evenly spaced in time, snapped onto cached commits within fuzz percent of
// the average cached gap.
func (ix *Indexer) History(ctx context.Context, samples, fuzz int) ([]vcs.Commit, error) {
	if samples < 0 {
		return nil, fmt.Errorf("samples must not be negative, got %d", samples)
	}
	all, err := ix.env.Client.History(ctx, ix.env.Config.Contrib.Commit, 0)
	if err != nil {
		return nil, err
	}

	var picked []vcs.Commit
	if samples == 0 {
		picked = history.Linear(all, 0)
	} else {
		picked = history.Sampled(all, samples)
		if fuzz > 0 {
			cached, err := ix.cachedCommits()
			if err != nil {
				return nil, err
			}
			picked = history.Fuzz(picked, cached, fuzz)
		}
	}

	history.SortByDate(picked)
	return history.Compact(picked), nil
}

// cachedCommits returns the commits indexed for the first part, which
// stands in for all parts.
func (ix *Indexer) cachedCommits() ([]vcs.Commit, error) {
	if len(ix.indexes) == 0 {
		return nil, nil
	}
	hashes, err := ix.indexes[0].Cached()
	if err != nil {
		return nil, err
	}
	return ix.env.Repo.Commits(hashes), nil
}

// Build makes sure every part has a table for every commit of hist. The
// worker pool lives exactly as long as the call.
func (ix *Indexer) Build(ctx context.Context, hist []vcs.Commit) error {
	exec := fileproc.NewExecutor(ix.env.Jobs, ix.env.Client.Blame, fileproc.WithProgress(ix.env.Progress))
	defer exec.Close()

	for _, idx := range ix.indexes {
		idx.SetBlamer(exec)
	}
	defer func() {
		for _, idx := range ix.indexes {
			idx.SetBlamer(nil)
		}
	}()

	todo, err := ix.pending(ctx, hist)
	if err != nil {
		return err
	}

	remaining := int(todo.GetCardinality())
	ix.env.Status("%d commits already complete.", len(hist)-remaining)
	ix.env.Status("%d commits remaining to index.", remaining)

	then := time.Now()
	it := todo.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		commit := hist[i]
		ix.env.Printf("STARTED %5d/%d %s\n", i+1, len(hist), commit.Hash)
		for _, idx := range ix.indexes {
			if _, err := idx.Get(ctx, commit.Hash); err != nil {
				return fmt.Errorf("indexing %s at %s: %w", idx.Name(), commit.Hash, err)
			}
		}
		now := time.Now()
		ix.env.Printf("    COMPLETED in %.2fs\n", now.Sub(then).Seconds())
		then = now
	}
	return nil
}

// pending returns the positions in hist of commits missing from any part.
func (ix *Indexer) pending(ctx context.Context, hist []vcs.Commit) (*roaring.Bitmap, error) {
	todo := roaring.New()
	for i, c := range hist {
		for _, idx := range ix.indexes {
			ok, err := idx.Contains(ctx, c.Hash)
			if err != nil {
				return nil, err
			}
			if !ok {
				todo.Add(uint32(i))
				break
			}
		}
	}
	return todo, nil
}

// Status describes how much of a history is indexed.
type Status struct {
	Commits int            `json:"commits"`
	Pending int            `json:"pending"`
	Cached  map[string]int `json:"cached"`
}

// Status reports the index coverage of hist.
func (ix *Indexer) Status(ctx context.Context, hist []vcs.Commit) (*Status, error) {
	todo, err := ix.pending(ctx, hist)
	if err != nil {
		return nil, err
	}
	st := &Status{Commits: len(hist), Pending: int(todo.GetCardinality()), Cached: make(map[string]int)}
	for _, idx := range ix.indexes {
		hashes, err := idx.Cached()
		if err != nil {
			return nil, err
		}
		st.Cached[idx.Name()] = len(hashes)
	}
	return st, nil
}

// Missing returns the commits of hist that some part has not indexed.
func (ix *Indexer) Missing(ctx context.Context, hist []vcs.Commit) ([]vcs.Commit, error) {
	todo, err := ix.pending(ctx, hist)
	if err != nil {
		return nil, err
	}
	out := make([]vcs.Commit, 0, todo.GetCardinality())
	for _, i := range todo.ToArray() {
		out = append(out, hist[i])
	}
	return slices.Clip(out), nil
}
