package vcs

import (
	"context"
	"time"
)

// Runner executes git with an argument vector and returns its stdout.
// Implementations run every command in a fixed repository directory.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// Commit is a commit hash together with its committer timestamp.
type Commit struct {
	Hash string    `json:"hash"`
	Date time.Time `json:"date"`
}

// Author is a commit author as reported by git log.
type Author struct {
	Name  string
	Email string
}
