// Package counts provides the line-count table shared by attribution,
// organization rollups and the on-disk cache.
package counts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Table maps a name (author or organization) to a non-negative line count.
// Iteration helpers return keys in a stable order and JSON encoding sorts
// keys, so tables serialize deterministically.
type Table map[string]int

// Entry is one name and its count.
type Entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// New returns an empty table.
func New() Table {
	return make(Table)
}

// Add increases the count for name by n. Non-positive n is ignored.
func (t Table) Add(name string, n int) {
	if n <= 0 {
		return
	}
	t[name] += n
}

// Merge adds every count in other to t.
func (t Table) Merge(other Table) {
	for name, n := range other {
		t.Add(name, n)
	}
}

// Total returns the sum of all counts.
func (t Table) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Keys returns the names in lexical order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ranked returns entries by descending count, ties broken by name.
func (t Table) Ranked() []Entry {
	entries := make([]Entry, 0, len(t))
	for name, n := range t {
		entries = append(entries, Entry{Name: name, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Clone returns an independent copy of t.
func (t Table) Clone() Table {
	c := make(Table, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Sum returns a new table holding the sum of all tables.
func Sum(tables ...Table) Table {
	out := New()
	for _, t := range tables {
		out.Merge(t)
	}
	return out
}

// Decode parses a JSON object of name to count. Negative or fractional
// counts are rejected.
func Decode(data []byte) (Table, error) {
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	t := make(Table, len(raw))
	for name, num := range raw {
		n, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("count for %q: %w", name, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative count %d for %q", n, name)
		}
		t[name] = int(n)
	}
	return t, nil
}

// Encode renders t as indented JSON with sorted keys and a trailing newline.
func (t Table) Encode() ([]byte, error) {
	if t == nil {
		t = Table{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]int(t)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
