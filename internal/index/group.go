package index

import (
	"fmt"
	"regexp"
)

// Group is a named set of path patterns whose files are counted together.
type Group struct {
	Name     string
	Patterns []string

	regexps []*regexp.Regexp
}

// NewGroup compiles the patterns of a group.
func NewGroup(name string, patterns []string) (Group, error) {
	g := Group{Name: name, Patterns: patterns}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return Group{}, fmt.Errorf("group %s: pattern %q: %w", name, p, err)
		}
		g.regexps = append(g.regexps, re)
	}
	return g, nil
}

// Match returns the files matched by any pattern, ordered by the first
// pattern that matches them. Each file appears once.
func (g Group) Match(files []string) []string {
	seen := make(map[string]bool)
	var matched []string
	for _, re := range g.regexps {
		for _, f := range files {
			if !seen[f] && re.MatchString(f) {
				seen[f] = true
				matched = append(matched, f)
			}
		}
	}
	return matched
}
