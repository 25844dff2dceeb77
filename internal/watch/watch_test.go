package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) cb(_ context.Context, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func startWatch(t *testing.T, opts Options, r *recorder) {
	t.Helper()
	opts.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, opts, r.cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startWatch(t, Options{Roots: []string{dir}, Patterns: []string{"**.md"}, Debounce: 200 * time.Millisecond}, r)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_ = os.WriteFile(filepath.Join(dir, name), []byte("# x"), 0o644)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(r.snapshot()) == 1
	}, "expected one debounced callback")

	calls := r.snapshot()
	if len(calls) == 1 && len(calls[0]) != 3 {
		t.Errorf("changed = %v, want 3 paths", calls[0])
	}
}

func TestWatch_FiltersByPattern(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startWatch(t, Options{Roots: []string{dir}, Patterns: []string{"**.md"}}, r)

	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := len(r.snapshot()); n != 0 {
		t.Fatalf("callbacks = %d for unmatched file, want 0", n)
	}

	_ = os.WriteFile(filepath.Join(dir, "page.md"), []byte("# x"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(r.snapshot()) == 1
	}, "matched file did not trigger callback")
}

func TestWatch_NewDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startWatch(t, Options{Roots: []string{dir}, Patterns: []string{"**.md"}}, r)

	sub := filepath.Join(dir, "guides")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "intro.md"), []byte("# Intro"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		for _, call := range r.snapshot() {
			for _, p := range call {
				if p == filepath.Join(sub, "intro.md") {
					return true
				}
			}
		}
		return false
	}, "file in new directory not reported")
}

func TestWatch_IgnoresOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}
	r := &recorder{}
	startWatch(t, Options{Roots: []string{dir}, Ignore: []string{out}}, r)

	_ = os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := len(r.snapshot()); n != 0 {
		t.Errorf("callbacks = %d for ignored dir, want 0", n)
	}
}

func TestMatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	m, err := newMatcher(Options{
		Roots:    []string{root},
		Patterns: []string{"**.md", "styles/*.scss"},
		Ignore:   []string{filepath.Join(root, "public")},
	})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{"index.md", true},
		{"guides/intro.md", true},
		{"styles/main.scss", true},
		{"styles/nested/x.scss", false},
		{"public/index.md", false},
		{".index.md.swp", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := m.relevant(filepath.Join(root, filepath.FromSlash(tt.path))); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
