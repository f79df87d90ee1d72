package history

import (
	"slices"
	"sort"
	"time"

	"github.com/panbanda/contrib/internal/vcs"
	"gonum.org/v1/gonum/stat"
)

// Fuzz snaps samples onto already-indexed commits to reuse prior work.
// The tolerance is percent of the average gap between consecutive cached
// commits. A sample that is itself cached is kept; otherwise it is replaced
// by the nearer of its two cached neighbours in time when that neighbour
// is within tolerance (the older one wins ties). Samples are returned
// unchanged when percent <= 0 or fewer than two commits are cached.
func Fuzz(samples, cached []vcs.Commit, percent int) []vcs.Commit {
	out := slices.Clone(samples)
	if percent <= 0 || len(cached) < 2 {
		return out
	}

	indexed := slices.Clone(cached)
	SortByDate(indexed)
	tolerance := time.Duration(float64(percent) * float64(AverageGap(indexed)) / 100)

	for k, s := range out {
		hi := sort.Search(len(indexed), func(i int) bool {
			return !indexed[i].Date.Before(s.Date)
		})
		lo := hi - 1
		if (lo >= 0 && indexed[lo].Hash == s.Hash) || (hi < len(indexed) && indexed[hi].Hash == s.Hash) {
			continue
		}

		best := -1
		var delta time.Duration
		if hi < len(indexed) {
			best, delta = hi, indexed[hi].Date.Sub(s.Date)
		}
		if lo >= 0 {
			if d := s.Date.Sub(indexed[lo].Date); best < 0 || d <= delta {
				best, delta = lo, d
			}
		}
		if best >= 0 && delta <= tolerance {
			out[k] = indexed[best]
		}
	}
	return out
}

// AverageGap returns the mean time between consecutive commits of a
// date-sorted list, or zero for fewer than two commits.
func AverageGap(sorted []vcs.Commit) time.Duration {
	if len(sorted) < 2 {
		return 0
	}
	gaps := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps[i-1] = sorted[i].Date.Sub(sorted[i-1].Date).Seconds()
	}
	return time.Duration(stat.Mean(gaps, nil) * float64(time.Second))
}
