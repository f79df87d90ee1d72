// Package orgs rolls author line counts up to organizations and maintains
// the author to organization map.
package orgs

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/panbanda/contrib/internal/cache"
	"github.com/panbanda/contrib/internal/vcs"
	"github.com/panbanda/contrib/pkg/counts"
)

// Unknown is the organization of authors without a known affiliation.
const Unknown = "unknown"

// Map maps an author name to an organization name. Values starting with
// "unknown" (such as "unknown <email>" placeholders) mean unaffiliated.
type Map map[string]string

// Organization returns the organization of author.
func (m Map) Organization(author string) string {
	org, ok := m[author]
	if !ok || strings.HasPrefix(org, Unknown) {
		return Unknown
	}
	return org
}

// Parse decodes a JSON object of author to organization.
func Parse(data []byte) (Map, error) {
	m := make(Map)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode renders m as JSON with sorted keys, two-space indentation and a
// trailing newline.
func (m Map) Encode() ([]byte, error) {
	if m == nil {
		m = Map{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]string(m)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save atomically replaces the file at path with m.
func (m Map) Save(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return cache.WriteAtomic(path, data, cache.TempTag())
}

// Rollup sums the counts of t per organization.
func Rollup(t counts.Table, m Map) counts.Table {
	out := counts.New()
	for author, n := range t {
		out.Add(m.Organization(author), n)
	}
	return out
}

// Source provides author tables by commit.
type Source interface {
	Get(ctx context.Context, rev string) (counts.Table, error)
}

// Aggregator derives organization tables from an author table source and
// memoizes them for the lifetime of the aggregator.
type Aggregator struct {
	source Source
	orgs   Map

	mu     sync.Mutex
	tables map[string]counts.Table
}

// NewAggregator creates an aggregator over source using m.
func NewAggregator(source Source, m Map) *Aggregator {
	return &Aggregator{source: source, orgs: m, tables: make(map[string]counts.Table)}
}

// Get returns the organization table of rev. The returned table is a copy.
func (a *Aggregator) Get(ctx context.Context, rev string) (counts.Table, error) {
	a.mu.Lock()
	t, ok := a.tables[rev]
	a.mu.Unlock()
	if ok {
		return t.Clone(), nil
	}

	authors, err := a.source.Get(ctx, rev)
	if err != nil {
		return nil, err
	}
	t = Rollup(authors, a.orgs)

	a.mu.Lock()
	a.tables[rev] = t
	a.mu.Unlock()
	return t.Clone(), nil
}

// AuthorLister lists commit authors.
type AuthorLister interface {
	Authors(ctx context.Context) ([]vcs.Author, error)
}

// Update adds every author of the repository that m does not know, or
// knows only as exactly "unknown", with an "unknown <email>" placeholder.
// It returns the number of authors added.
func Update(ctx context.Context, lister AuthorLister, m Map) (int, error) {
	authors, err := lister.Authors(ctx)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, a := range authors {
		if org, ok := m[a.Name]; !ok || org == Unknown {
			m[a.Name] = Unknown + " <" + a.Email + ">"
			added++
		}
	}
	return added, nil
}
