package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// ReadFile reads content from a file.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RequireGit skips the test when the git binary is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// Repo is a throwaway repository with deterministic authors and dates.
type Repo struct {
	Path string

	t    *testing.T
	repo *git.Repository
}

// NewRepo initializes an empty repository in a temporary directory.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	path := t.TempDir()
	repo, err := git.PlainInit(path, false)
	if err != nil {
		t.Fatalf("Failed to init git repo: %v", err)
	}
	return &Repo{Path: path, t: t, repo: repo}
}

// Commit writes files, stages them and commits as author at when.
// The author and committer signatures are identical. Returns the hash.
func (r *Repo) Commit(author string, when time.Time, files map[string]string) string {
	r.t.Helper()

	w, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		WriteFile(r.t, filepath.Join(r.Path, name), files[name])
		if _, err := w.Add(name); err != nil {
			r.t.Fatalf("Failed to add file %s: %v", name, err)
		}
	}

	sig := &object.Signature{
		Name:  author,
		Email: author + "@example.com",
		When:  when,
	}
	hash, err := w.Commit("update", &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash.String()
}
