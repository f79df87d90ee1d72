// Package history selects the commits to index from a first-parent,
// non-merge history.
package history

import (
	"slices"
	"time"

	"github.com/panbanda/contrib/internal/vcs"
)

// Linear returns up to limit commits of a newest-first history, newest
// first. A limit <= 0 returns every commit.
func Linear(commits []vcs.Commit, limit int) []vcs.Commit {
	if limit > 0 && limit < len(commits) {
		commits = commits[:limit]
	}
	return slices.Clone(commits)
}

// Sampled picks about n commits evenly spaced in time from a newest-first
// history and returns them oldest first. The span between the oldest and
// newest commit is cut into n-1 equal intervals; for each interval boundary
// the first commit at or after it is taken, skipping repeats. The newest
// commit is always the last sample. Histories of fewer than two commits,
// or n < 2, yield just the newest commit.
func Sampled(commits []vcs.Commit, n int) []vcs.Commit {
	if len(commits) == 0 {
		return nil
	}
	newest := commits[0]
	if n < 2 || len(commits) == 1 {
		return []vcs.Commit{newest}
	}

	start := commits[len(commits)-1].Date
	dt := newest.Date.Sub(start) / time.Duration(n-1)

	samples := make([]vcs.Commit, 0, n)
	j := len(commits) - 1
	cur := commits[j]
walk:
	for i := 0; i < n; i++ {
		boundary := start.Add(time.Duration(i) * dt)
		for cur.Date.Before(boundary) {
			j--
			if j < 0 {
				break walk
			}
			cur = commits[j]
		}
		if len(samples) == 0 || samples[len(samples)-1].Hash != cur.Hash {
			samples = append(samples, cur)
		}
	}

	if last := samples[len(samples)-1]; last.Hash != newest.Hash {
		if len(samples) == n {
			samples[len(samples)-1] = newest
		} else {
			samples = append(samples, newest)
		}
	}
	return Compact(samples)
}

// SortByDate orders commits oldest first, keeping the relative order of
// commits with equal dates.
func SortByDate(commits []vcs.Commit) {
	slices.SortStableFunc(commits, func(a, b vcs.Commit) int {
		return a.Date.Compare(b.Date)
	})
}

// Compact drops consecutive commits with the same hash.
func Compact(commits []vcs.Commit) []vcs.Commit {
	return slices.CompactFunc(commits, func(a, b vcs.Commit) bool {
		return a.Hash == b.Hash
	})
}
