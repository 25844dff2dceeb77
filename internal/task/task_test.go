package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
)

func recordTask(name string, mu *sync.Mutex, log *[]string) *Task {
	return New(name, func(context.Context) error {
		mu.Lock()
		*log = append(*log, name)
		mu.Unlock()
		return nil
	})
}

func TestSeries_RunsInOrder(t *testing.T) {
	var mu sync.Mutex
	var log []string
	s := Series("s", recordTask("a", &mu, &log), recordTask("b", &mu, &log), recordTask("c", &mu, &log))

	require.NoError(t, NewRunner().Run(context.Background(), s))
	assert.Equal(t, []string{"a", "b", "c"}, log)
}

func TestSeries_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Bool
	s := Series("s",
		New("fail", func(context.Context) error { return boom }),
		New("after", func(context.Context) error { ran.Store(true); return nil }),
	)

	err := NewRunner().Run(context.Background(), s)
	assert.Same(t, boom, err)
	assert.False(t, ran.Load())
}

func TestParallel_RunsConcurrently(t *testing.T) {
	// Both children must be running at the same time to release each other.
	a, b := make(chan struct{}), make(chan struct{})
	p := Parallel("p",
		New("a", func(ctx context.Context) error {
			close(a)
			select {
			case <-b:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("b never started")
			}
		}),
		New("b", func(ctx context.Context) error {
			close(b)
			select {
			case <-a:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("a never started")
			}
		}),
	)
	require.NoError(t, NewRunner().Run(context.Background(), p))
}

func TestParallel_BestEffortReportsAllFailures(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	var finished atomic.Int32
	p := Parallel("p",
		New("a", func(context.Context) error { return errA }),
		New("b", func(context.Context) error { return errB }),
		New("c", func(context.Context) error {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
			return nil
		}),
	)

	err := NewRunner().Run(context.Background(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, int32(1), finished.Load())
}

func TestParallel_SingleFailureUnwrapped(t *testing.T) {
	boom := errors.New("boom")
	p := Parallel("p",
		New("ok", func(context.Context) error { return nil }),
		New("bad", func(context.Context) error { return boom }),
	)
	assert.Same(t, boom, NewRunner().Run(context.Background(), p))
}

func TestParallel_FailFastSkipsUnstarted(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Bool
	p := Parallel("p",
		New("bad", func(context.Context) error { return boom }),
		New("later", func(context.Context) error { ran.Store(true); return nil }),
	)

	r := NewRunner(WithPolicy(FailFast), WithMaxParallel(1))
	err := r.Run(context.Background(), p)
	assert.Same(t, boom, err)
	assert.False(t, ran.Load())
}

type countingObserver struct {
	mu    sync.Mutex
	names []string
	fails int
}

func (o *countingObserver) ObserveTask(name string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
	if err != nil {
		o.fails++
	}
}

func TestRunner_ObservesLeaves(t *testing.T) {
	obs := &countingObserver{}
	s := Series("s",
		New("a", func(context.Context) error { return nil }),
		Parallel("p", New("b", func(context.Context) error { return errors.New("x") })),
	)
	_ = NewRunner(WithObserver(obs)).Run(context.Background(), s)
	assert.Equal(t, []string{"a", "b"}, obs.names)
	assert.Equal(t, 1, obs.fails)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Bool
	err := NewRunner().Run(ctx, New("a", func(context.Context) error { ran.Store(true); return nil }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestTask_DisplayAndWalk(t *testing.T) {
	leaf := New("leaf", nil).WithDisplayName("A leaf")
	s := Series("root", Parallel("group", leaf), nil)

	assert.Equal(t, "A leaf", leaf.DisplayName())
	assert.Equal(t, "root", s.DisplayName())
	assert.Len(t, s.Children(), 1)

	var names []string
	s.Walk(func(t *Task) { names = append(names, t.Name()) })
	assert.Equal(t, []string{"root", "group", "leaf"}, names)
}

func TestGraph_RegisterAndLookup(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Register(New("build", nil)))
	require.NoError(t, g.RegisterAs("build/guides", New("category:guides", nil)))

	err := g.Register(New("build", nil))
	assert.ErrorIs(t, err, apperr.ErrDuplicateTask)

	got, err := g.Lookup("build/guides")
	require.NoError(t, err)
	assert.Equal(t, "category:guides", got.Name())

	_, err = g.Lookup("missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, []string{"build", "build/guides"}, g.Names())
}

func TestClean_TwiceSucceeds(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "guides"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "guides", "intro.html"), []byte("x"), 0o644))

	r := NewRunner()
	clean := Clean(out)
	require.NoError(t, r.Run(context.Background(), clean))
	require.NoError(t, r.Run(context.Background(), clean))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestCopy_Task(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "images", "logo.png"), []byte("png"), 0o644))

	cp := Copy(filepath.Join(src, "images", "**"), filepath.Join(dst, "images"))
	assert.Contains(t, cp.DisplayName(), "copy ")
	require.NoError(t, NewRunner().Run(context.Background(), cp))

	data, err := os.ReadFile(filepath.Join(dst, "images", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}
