package output

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/panbanda/contrib/internal/cache"
	"github.com/panbanda/contrib/internal/engine"
)

// SeriesData is the serialized form of a series.
type SeriesData struct {
	Part   string      `json:"part" yaml:"part" toon:"part"`
	By     string      `json:"by" yaml:"by" toon:"by"`
	Points []PointData `json:"points" yaml:"points" toon:"points"`
}

// PointData is the serialized form of one commit of a series.
type PointData struct {
	Commit string         `json:"commit" yaml:"commit" toon:"commit"`
	Date   string         `json:"date" yaml:"date" toon:"date"`
	Counts map[string]int `json:"counts" yaml:"counts" toon:"counts"`
}

// NewSeriesData converts series for structured output.
func NewSeriesData(series []*engine.Series) []SeriesData {
	out := make([]SeriesData, len(series))
	for i, s := range series {
		d := SeriesData{Part: s.Part, By: string(s.By), Points: make([]PointData, len(s.Points))}
		for j, p := range s.Points {
			d.Points[j] = PointData{
				Commit: p.Commit.Hash,
				Date:   p.Commit.Date.UTC().Format(time.RFC3339),
				Counts: p.Counts,
			}
		}
		out[i] = d
	}
	return out
}

// Summary ranks the contributors of the newest commit of every series.
// Structured formats get the complete series instead.
func Summary(series []*engine.Series, topN int) *Report {
	r := &Report{
		Title: "Contributions (lines of code)",
		Data:  NewSeriesData(series),
	}
	if len(series) > 0 && len(series[0].Points) > 0 {
		pts := series[0].Points
		first, last := pts[0].Commit, pts[len(pts)-1].Commit
		r.Content = fmt.Sprintf("%s commits from %s to %s (%s)",
			humanize.Comma(int64(len(pts))),
			first.Date.Format(time.DateOnly), last.Date.Format(time.DateOnly), shortHash(last.Hash))
	}
	for _, s := range series {
		r.Sections = append(r.Sections, contributorTable(s, topN))
	}
	return r
}

func contributorTable(s *engine.Series, topN int) *Table {
	last := s.Last()
	total := last.Total()
	ranked := last.Ranked()
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	rows := make([][]string, len(ranked))
	for i, e := range ranked {
		rows[i] = []string{strconv.Itoa(i + 1), e.Name, humanize.Comma(int64(e.Count)), share(e.Count, total)}
	}
	footer := []string{"", "Total", humanize.Comma(int64(total)), share(total, total)}
	return NewTable(fmt.Sprintf("%s by %s", s.Part, s.By), []string{"Rank", "Name", "Lines", "Share"}, rows, footer, nil)
}

func share(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// CacheStats describes the contents of a cache directory.
func CacheStats(dir string, st *cache.Stats) *Table {
	now := time.Now()
	rows := [][]string{}
	for _, group := range sortedKeys(st.Groups) {
		rows = append(rows, []string{"tables (" + group + ")", humanize.Comma(int64(st.Groups[group]))})
	}
	rows = append(rows,
		[]string{"blames", humanize.Comma(int64(st.Blames))},
		[]string{"stale temp files", humanize.Comma(int64(st.Stale))},
		[]string{"size", humanize.Bytes(uint64(st.TotalSize))},
	)
	if st.OldestAge > 0 {
		rows = append(rows,
			[]string{"oldest entry", humanize.Time(now.Add(-st.OldestAge))},
			[]string{"newest entry", humanize.Time(now.Add(-st.NewestAge))},
		)
	}
	return NewTable("Cache "+dir, []string{"Entry", "Value"}, rows, nil, st)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
