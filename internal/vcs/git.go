package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository is returned when a path has no git metadata directory.
var ErrNotRepository = errors.New("not a git repository")

// Repo is an in-process view of a repository used for cheap lookups that
// would otherwise cost one git process each.
type Repo struct {
	root string
	repo *git.Repository
}

// Open validates that path is the root of a git work tree and opens it.
func Open(path string) (*Repo, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(root, git.GitDirName)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, root)
	}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", root, err)
	}
	return &Repo{root: root, repo: repo}, nil
}

// Root returns the absolute repository root.
func (r *Repo) Root() string {
	return r.root
}

// CommitDate returns the committer timestamp of the commit with the given hash.
func (r *Repo) CommitDate(hash string) (time.Time, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return time.Time{}, fmt.Errorf("commit %s: %w", hash, err)
	}
	return commit.Committer.When, nil
}

// Commits returns the hash and date of each hash, skipping hashes that are
// not commits of this repository.
func (r *Repo) Commits(hashes []string) []Commit {
	commits := make([]Commit, 0, len(hashes))
	for _, h := range hashes {
		date, err := r.CommitDate(h)
		if err != nil {
			continue
		}
		commits = append(commits, Commit{Hash: h, Date: date})
	}
	return commits
}
