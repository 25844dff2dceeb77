package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/logfields"
)

// Policy decides what happens to running siblings when one parallel child fails.
type Policy int

const (
	// BestEffort lets every started sibling finish and reports all failures.
	BestEffort Policy = iota
	// FailFast cancels the shared context on the first failure. Leaves that
	// have not started yet are skipped.
	FailFast
)

// Observer receives the outcome of every leaf task.
type Observer interface {
	ObserveTask(name string, d time.Duration, err error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPolicy sets the sibling failure policy.
func WithPolicy(p Policy) RunnerOption {
	return func(r *Runner) { r.policy = p }
}

// WithMaxParallel bounds the number of concurrently running children of each
// parallel group. Zero or less means unbounded.
func WithMaxParallel(n int) RunnerOption {
	return func(r *Runner) { r.maxParallel = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithObserver attaches an observer for leaf outcomes.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// Runner executes task trees.
type Runner struct {
	policy      Policy
	maxParallel int
	logger      *slog.Logger
	observer    Observer
}

// NewRunner creates a runner. The default policy is BestEffort.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes t. Errors returned by leaf functions are passed through
// without wrapping.
func (r *Runner) Run(ctx context.Context, t *Task) error {
	switch t.kind {
	case KindSeries:
		for _, c := range t.children {
			if err := r.Run(ctx, c); err != nil {
				return err
			}
		}
		return nil
	case KindParallel:
		return r.runParallel(ctx, t)
	default:
		return r.runLeaf(ctx, t)
	}
}

func (r *Runner) runLeaf(ctx context.Context, t *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fn == nil {
		return nil
	}

	r.logger.Debug("task: started", logfields.Task(t.name))
	start := time.Now()
	err := t.fn(ctx)
	elapsed := time.Since(start)

	if r.observer != nil {
		r.observer.ObserveTask(t.name, elapsed, err)
	}
	if err != nil {
		r.logger.Error("task: failed",
			logfields.Task(t.name),
			slog.String("display", t.DisplayName()),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000),
			logfields.Error(err))
		return err
	}
	r.logger.Info("task: finished",
		logfields.Task(t.name),
		slog.String("display", t.DisplayName()),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return nil
}

func (r *Runner) runParallel(ctx context.Context, t *Task) error {
	switch len(t.children) {
	case 0:
		return nil
	case 1:
		return r.Run(ctx, t.children[0])
	}

	if r.policy == FailFast {
		g, gCtx := errgroup.WithContext(ctx)
		if r.maxParallel > 0 {
			g.SetLimit(r.maxParallel)
		}
		for _, c := range t.children {
			g.Go(func() error { return r.Run(gCtx, c) })
		}
		return g.Wait()
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if r.maxParallel > 0 {
		g.SetLimit(r.maxParallel)
	}
	for _, c := range t.children {
		g.Go(func() error {
			if err := r.Run(ctx, c); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
