package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IgnoreRevsFile is the conventional file of revisions excluded from blame.
const IgnoreRevsFile = ".git-blame-ignore-revs"

// HashLen is the length of a full SHA-1 commit hash in hex.
const HashLen = 40

// Client issues the git commands the indexer needs through a Runner.
type Client struct {
	root   string
	runner Runner

	mu       sync.Mutex
	resolved map[string]string
}

// NewClient creates a client for the repository at root.
func NewClient(root string, runner Runner) *Client {
	return &Client{
		root:     root,
		runner:   runner,
		resolved: make(map[string]string),
	}
}

// Root returns the repository root.
func (c *Client) Root() string {
	return c.root
}

// Raw runs git and returns stdout unmodified.
func (c *Client) Raw(ctx context.Context, args ...string) (string, error) {
	out, err := c.runner.Run(ctx, args)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Lines runs git and returns stdout with surrounding whitespace stripped,
// split on newlines. Empty output yields no lines.
func (c *Client) Lines(ctx context.Context, args ...string) ([]string, error) {
	out, err := c.Raw(ctx, args...)
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// History lists first-parent, non-merge commits reachable from rev,
// newest first. A positive limit caps the number of commits returned.
func (c *Client) History(ctx context.Context, rev string, limit int) ([]Commit, error) {
	args := []string{"log", "--first-parent", "--no-merges", "--format=%H %cI"}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}
	if rev != "" {
		args = append(args, rev)
	}
	lines, err := c.Lines(ctx, args...)
	if err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(lines))
	for _, line := range lines {
		hash, stamp, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unexpected log line %q", line)
		}
		date, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return nil, fmt.Errorf("parsing date of %s: %w", hash, err)
		}
		commits = append(commits, Commit{Hash: hash, Date: date})
	}
	return commits, nil
}

// ListFiles returns every path in the tree of rev. Paths are read
// NUL-terminated so git does not quote unusual names.
func (c *Client) ListFiles(ctx context.Context, rev string) ([]string, error) {
	out, err := c.Raw(ctx, "ls-tree", "-r", "-z", "--name-only", "--full-tree", rev)
	if err != nil {
		return nil, err
	}
	var files []string
	for name := range strings.SplitSeq(out, "\x00") {
		if name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

// Blame returns the whitespace-insensitive, move/copy-aware porcelain blame
// of path at rev. The repository's ignore-revs file is honoured when present.
func (c *Client) Blame(ctx context.Context, rev, path string) (string, error) {
	args := []string{"blame", "-w", "-M", "-C", "--line-porcelain"}
	ignoreRevs, err := filepath.Abs(filepath.Join(c.root, IgnoreRevsFile))
	if err == nil {
		if _, statErr := os.Stat(ignoreRevs); statErr == nil {
			args = append(args, "--ignore-revs-file", ignoreRevs)
		}
	}
	args = append(args, rev, "--", path)
	return c.Raw(ctx, args...)
}

// Resolve returns the full hash rev refers to. Resolutions are memoized
// and full hashes are returned without invoking git.
func (c *Client) Resolve(ctx context.Context, rev string) (string, error) {
	if IsHash(rev) {
		return rev, nil
	}

	c.mu.Lock()
	hash, ok := c.resolved[rev]
	c.mu.Unlock()
	if ok {
		return hash, nil
	}

	out, err := c.Raw(ctx, "rev-parse", rev)
	if err != nil {
		return "", err
	}
	hash = strings.TrimSpace(out)

	c.mu.Lock()
	c.resolved[rev] = hash
	c.mu.Unlock()
	return hash, nil
}

// CommitDate returns the committer date of rev.
func (c *Client) CommitDate(ctx context.Context, rev string) (time.Time, error) {
	out, err := c.Raw(ctx, "show", "-s", "--format=%cI", rev)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(out))
}

// Authors lists the author of every non-merge commit, newest first.
// Authors appear once per commit, so names repeat.
func (c *Client) Authors(ctx context.Context) ([]Author, error) {
	lines, err := c.Lines(ctx, "log", "--no-merges", "--pretty=format:%aN|%ae")
	if err != nil {
		return nil, err
	}
	authors := make([]Author, 0, len(lines))
	for _, line := range lines {
		i := strings.LastIndex(line, "|")
		if i < 0 {
			return nil, fmt.Errorf("unexpected author line %q", line)
		}
		authors = append(authors, Author{Name: line[:i], Email: line[i+1:]})
	}
	return authors, nil
}

// IsHash reports whether s is a full lowercase hex commit hash.
func IsHash(s string) bool {
	if len(s) != HashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}
