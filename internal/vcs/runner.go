package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ErrGitNotFound is returned when git is not available in PATH.
var ErrGitNotFound = errors.New("git executable not found in PATH")

var (
	gitCheckOnce sync.Once
	gitCheckErr  error
)

// CheckGit verifies that git is installed and accessible.
func CheckGit() error {
	gitCheckOnce.Do(func() {
		if _, err := exec.LookPath("git"); err != nil {
			gitCheckErr = ErrGitNotFound
		}
	})
	return gitCheckErr
}

// CommandError is returned when git exits with a non-zero status.
type CommandError struct {
	Dir      string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s (in %s) exited with status %d", strings.Join(e.Args, " "), e.Dir, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs the git binary with its working directory set to a
// repository root. The process working directory is never changed.
type ExecRunner struct {
	dir    string
	binary string
	logger *slog.Logger
}

// RunnerOption configures an ExecRunner.
type RunnerOption func(*ExecRunner)

// WithBinary overrides the git executable.
func WithBinary(path string) RunnerOption {
	return func(r *ExecRunner) {
		r.binary = path
	}
}

// WithLogger sets the logger that receives one debug record per command.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// NewExecRunner creates a runner bound to dir.
func NewExecRunner(dir string, opts ...RunnerOption) *ExecRunner {
	r := &ExecRunner{
		dir:    dir,
		binary: "git",
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the directory commands run in.
func (r *ExecRunner) Dir() string {
	return r.dir
}

// Run executes git with args. A non-zero exit yields a *CommandError.
// Cancelling ctx kills the child process.
func (r *ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	r.logger.Debug("git", "dir", r.dir, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{
				Dir:      r.dir,
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return nil, fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}
