package blame

import (
	"slices"
	"strings"
	"testing"

	"github.com/panbanda/contrib/pkg/counts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	commitA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	commitB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var porcelain = strings.Join([]string{
	commitA + " 1 1 2",
	"author Alice",
	"author-mail <alice@example.com>",
	"author-time 1577836800",
	"summary initial",
	"filename hello.py",
	"\tdef hello():",
	commitA + " 2 2",
	"author Alice",
	"author-mail <alice@example.com>",
	"filename hello.py",
	"\t    # greet",
	commitB + " 3 3 1",
	"author Bob",
	"author-mail <bob@example.com>",
	"previous " + commitA + " hello.py",
	"filename hello.py",
	"\t    print('hi')",
}, "\n") + "\n"

func TestParse(t *testing.T) {
	got := slices.Collect(Parse(porcelain))

	want := []Line{
		{Commit: commitA, Author: "Alice", Text: "def hello():"},
		{Commit: commitA, Author: "Alice", Text: "    # greet"},
		{Commit: commitB, Author: "Bob", Text: "    print('hi')"},
	}
	assert.Equal(t, want, got)
}

func TestParse_Restartable(t *testing.T) {
	seq := Parse(porcelain)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
}

func TestParse_StopsEarly(t *testing.T) {
	n := 0
	for range Parse(porcelain) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestParse_CarriesStateAcrossMetadata(t *testing.T) {
	out := commitA + " 1 1 1\nauthor Eve\nboundary\nsummary x y z\n\tline one\n\tline two\n"
	got := slices.Collect(Parse(out))
	require.Len(t, got, 2)
	assert.Equal(t, Line{Commit: commitA, Author: "Eve", Text: "line two"}, got[1])
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, slices.Collect(Parse("")))
}

func TestIsHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{commitA, true},
		{commitA + " 1 1 1", true},
		{commitA + "x", false},
		{"author-mail <a@b>", false},
		{"summary " + commitA, false},
		{"abc", false},
	}
	for _, tt := range tests {
		if got := isHeader(tt.line); got != tt.want {
			t.Errorf("isHeader(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestDefaultIgnore(t *testing.T) {
	ignore := Default()
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"    ", true},
		{"# comment", true},
		{"   # indented comment", true},
		{"x = 1  # trailing", false},
		{"print('#')", false},
	}
	for _, tt := range tests {
		if got := ignore(tt.text); got != tt.want {
			t.Errorf("ignore(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestPatterns_Invalid(t *testing.T) {
	_, err := Patterns(`(`)
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	assert.Equal(t, counts.Table{"Alice": 1, "Bob": 1}, Count(porcelain, Default()))
	assert.Equal(t, counts.Table{"Alice": 2, "Bob": 1}, Count(porcelain, nil))

	slashes, err := Patterns(`^\s*//`)
	require.NoError(t, err)
	assert.Equal(t, counts.Table{"Alice": 2, "Bob": 1}, Count(porcelain, slashes))
}
