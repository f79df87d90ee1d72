package engine

import (
	"context"
	"fmt"

	"github.com/panbanda/contrib/internal/vcs"
	"github.com/panbanda/contrib/pkg/counts"
	"github.com/panbanda/contrib/pkg/orgs"
)

// By names the key of a series.
type By string

const (
	ByAuthor       By = "author"
	ByOrganization By = "organization"
)

// ParseBy parses an attribution key.
func ParseBy(s string) (By, error) {
	switch By(s) {
	case ByAuthor, ByOrganization:
		return By(s), nil
	case "org":
		return ByOrganization, nil
	}
	return "", fmt.Errorf("unknown attribution %q (use author or organization)", s)
}

// Point is the table of one commit.
type Point struct {
	Commit vcs.Commit   `json:"commit" yaml:"commit"`
	Counts counts.Table `json:"counts" yaml:"counts"`
}

// Series is the per-commit attribution of one part, oldest first.
type Series struct {
	Part   string  `json:"part" yaml:"part"`
	By     By      `json:"by" yaml:"by"`
	Points []Point `json:"points" yaml:"points"`
}

// Last returns the table of the newest point, or an empty table.
func (s *Series) Last() counts.Table {
	if len(s.Points) == 0 {
		return counts.New()
	}
	return s.Points[len(s.Points)-1].Counts
}

// merged applies identity merges to the tables of src.
type merged struct {
	src    orgs.Source
	groups [][]string
}

func (m merged) Get(ctx context.Context, rev string) (counts.Table, error) {
	t, err := m.src.Get(ctx, rev)
	if err != nil {
		return nil, err
	}
	counts.MergeIdentities(t, m.groups)
	return t, nil
}

// Series returns the series of part keyed by by over hist. Tables must
// already be indexed; see Build.
func (ix *Indexer) Series(ctx context.Context, part string, by By, hist []vcs.Commit) (*Series, error) {
	idx, ok := ix.byName[part]
	if !ok {
		return nil, fmt.Errorf("unknown part %q", part)
	}

	groups := ix.env.Config.Contrib.Merge
	var src orgs.Source = merged{src: idx, groups: groups}
	switch by {
	case ByAuthor:
	case ByOrganization:
		src = merged{src: orgs.NewAggregator(src, ix.env.Config.OrgMap), groups: groups}
	default:
		return nil, fmt.Errorf("unknown attribution %q", by)
	}

	s := &Series{Part: part, By: by, Points: make([]Point, 0, len(hist))}
	for _, c := range hist {
		t, err := src.Get(ctx, c.Hash)
		if err != nil {
			return nil, fmt.Errorf("%s by %s at %s: %w", part, by, c.Hash, err)
		}
		s.Points = append(s.Points, Point{Commit: c, Counts: t})
	}
	return s, nil
}

// Bys returns the attributions available for this configuration:
// organization only when the org map has entries.
func (ix *Indexer) Bys() []By {
	if len(ix.env.Config.OrgMap) == 0 {
		return []By{ByAuthor}
	}
	return []By{ByAuthor, ByOrganization}
}

// AllSeries returns the series of every part, by author and then by
// organization. Organization series are skipped when no org map entries
// are loaded.
func (ix *Indexer) AllSeries(ctx context.Context, hist []vcs.Commit) ([]*Series, error) {
	var out []*Series
	for _, part := range ix.Parts() {
		for _, by := range ix.Bys() {
			s, err := ix.Series(ctx, part, by, hist)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}
