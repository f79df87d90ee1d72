// Package blame parses `git blame --line-porcelain` output into per-line
// attributions and aggregates them into author line counts.
package blame

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/panbanda/contrib/pkg/counts"
)

const hashLen = 40

// Line is one source line with the commit and author it is attributed to.
type Line struct {
	Commit string
	Author string
	Text   string
}

// Parse returns the attributed source lines of porcelain blame output in
// input order. Header lines set the current commit, "author " lines set
// the current author and tab-prefixed lines carry source text. All other
// metadata lines are skipped. The sequence can be iterated repeatedly.
func Parse(output string) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		var commit, author string
		for raw := range strings.Lines(output) {
			line := strings.TrimSuffix(raw, "\n")
			switch {
			case strings.HasPrefix(line, "author "):
				author = strings.TrimPrefix(line, "author ")
			case strings.HasPrefix(line, "\t"):
				if !yield(Line{Commit: commit, Author: author, Text: line[1:]}) {
					return
				}
			case isHeader(line):
				commit = line[:hashLen]
			}
		}
	}
}

// isHeader reports whether line starts with a full commit hash followed by
// either nothing or a space-separated field.
func isHeader(line string) bool {
	if len(line) < hashLen {
		return false
	}
	if len(line) > hashLen && line[hashLen] != ' ' {
		return false
	}
	for i := 0; i < hashLen; i++ {
		ch := line[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
			return false
		}
	}
	return true
}

// Ignore reports whether a source line should be excluded from counts.
type Ignore func(text string) bool

// DefaultPatterns exclude comment-only and blank lines of '#'-commented
// languages.
var DefaultPatterns = []string{`^\s*#`, `^\s*$`}

// Patterns returns an Ignore matching any of the regular expressions.
// With no expressions nothing is ignored.
func Patterns(exprs ...string) (Ignore, error) {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", expr, err)
		}
		res = append(res, re)
	}
	return func(text string) bool {
		for _, re := range res {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}, nil
}

// Default returns the Ignore built from DefaultPatterns.
func Default() Ignore {
	ignore, err := Patterns(DefaultPatterns...)
	if err != nil {
		panic(err)
	}
	return ignore
}

// Count tallies non-ignored lines of output per author. A nil ignore
// counts every line.
func Count(output string, ignore Ignore) counts.Table {
	table := counts.New()
	for line := range Parse(output) {
		if ignore != nil && ignore(line.Text) {
			continue
		}
		table.Add(line.Author, 1)
	}
	return table
}
