// Package fileproc runs per-file blame queries on a bounded worker pool.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/panbanda/contrib/internal/cache"
	"github.com/panbanda/contrib/internal/progress"
	"github.com/sourcegraph/conc/pool"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("executor is closed")

// Job is one file to blame at one commit. CacheFile holds the raw blame
// text once computed.
type Job struct {
	Commit    string
	Path      string
	CacheFile string
}

// BlameError is returned when blaming a single file fails.
type BlameError struct {
	Commit string
	Path   string
	Err    error
}

func (e *BlameError) Error() string {
	return fmt.Sprintf("blame %s at %s: %v", e.Path, e.Commit, e.Err)
}

func (e *BlameError) Unwrap() error {
	return e.Err
}

// BlameFunc produces the raw blame text of path at commit.
type BlameFunc func(ctx context.Context, commit, path string) (string, error)

// ProgressSink observes batch progress. Implementations must not block.
type ProgressSink interface {
	Start(label string, total int)
	Update(done, total int, rate float64)
	Finish()
}

// Executor is a bounded pool of blame workers. It is created once per
// indexing run, handles any number of batches through Run and is torn
// down with Close, which kills in-flight git processes.
type Executor struct {
	workers int
	blame   BlameFunc
	sink    ProgressSink
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithProgress sets the sink receiving per-batch progress.
func WithProgress(sink ProgressSink) Option {
	return func(e *Executor) {
		e.sink = sink
	}
}

// WithClock overrides the time source used for throughput.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// NewExecutor creates an executor with the given number of workers.
// If workers is <= 0, defaults to NumCPU.
func NewExecutor(workers int, blame BlameFunc, opts ...Option) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		workers: workers,
		blame:   blame,
		sink:    progress.Nop{},
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the pool size.
func (e *Executor) Workers() int {
	return e.workers
}

// Close terminates the pool. Running jobs are cancelled and later calls
// to Run fail with ErrClosed. Close is idempotent.
func (e *Executor) Close() {
	e.closed.Store(true)
	e.cancel()
}

type result struct {
	job    Job
	output string
	err    error
}

// Run blames every job on the pool and hands each output to consume on the
// calling goroutine in completion order. The first job or consume error
// cancels outstanding jobs; Run returns only after every worker has exited.
func (e *Executor) Run(ctx context.Context, label string, jobs []Job, consume func(Job, string) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if len(jobs) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	results := make(chan result)
	waited := make(chan error, 1)

	p := pool.New().WithMaxGoroutines(e.workers).WithContext(ctx).WithCancelOnError()
	go func() {
		for _, job := range jobs {
			p.Go(func(ctx context.Context) error {
				out, err := e.blameFile(ctx, job)
				select {
				case results <- result{job: job, output: out, err: err}:
				case <-ctx.Done():
				}
				return err
			})
		}
		waited <- p.Wait()
		close(results)
	}()

	e.sink.Start(label, len(jobs))
	defer e.sink.Finish()
	meter := progress.NewMeter(e.now(), progress.DefaultWindow)

	var firstErr error
	consumed := 0
	for r := range results {
		if firstErr != nil {
			continue
		}
		if r.err != nil {
			firstErr = r.err
			cancel()
			continue
		}
		done, rate := meter.Tick(e.now())
		e.sink.Update(done, len(jobs), rate)
		if err := consume(r.job, r.output); err != nil {
			firstErr = err
			cancel()
			continue
		}
		consumed++
	}

	waitErr := <-waited
	switch {
	case firstErr != nil:
		return firstErr
	case waitErr != nil:
		return waitErr
	case consumed < len(jobs):
		if e.closed.Load() {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%s: %d of %d blames incomplete", label, consumed, len(jobs))
	}
	return nil
}

// blameFile returns the cached blame of job or computes and caches it.
func (e *Executor) blameFile(ctx context.Context, job Job) (string, error) {
	data, err := os.ReadFile(job.CacheFile)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	out, err := e.blame(ctx, job.Commit, job.Path)
	if err != nil {
		return "", &BlameError{Commit: job.Commit, Path: job.Path, Err: err}
	}
	if err := cache.WriteAtomic(job.CacheFile, []byte(out), cache.TempTag()); err != nil {
		return "", fmt.Errorf("caching blame of %s: %w", job.Path, err)
	}
	return out, nil
}
