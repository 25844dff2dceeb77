// Package watch triggers rebuilds when source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/starford/quire/internal/paths"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before calling back.
const DefaultDebounce = 300 * time.Millisecond

// Callback receives the set of changed paths after a quiet period.
type Callback func(ctx context.Context, changed []string)

// Options configures Watch.
type Options struct {
	// Roots are watched recursively. New subdirectories are picked up.
	Roots []string
	// Patterns filter events by their path relative to the owning root.
	// Empty means every file.
	Patterns []string
	// Ignore lists directories whose events are dropped, typically the
	// output and work roots when they live below a watched root.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

type matcher struct {
	roots  []string
	globs  []glob.Glob
	ignore []string
}

func newMatcher(opts Options) (*matcher, error) {
	m := &matcher{}
	for _, r := range opts.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: root %s: %w", r, err)
		}
		m.roots = append(m.roots, abs)
	}
	for _, p := range opts.Patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("watch: pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	for _, d := range opts.Ignore {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("watch: ignore %s: %w", d, err)
		}
		m.ignore = append(m.ignore, abs)
	}
	return m, nil
}

func (m *matcher) ignored(abs string) bool {
	for _, d := range m.ignore {
		if paths.Within(d, abs) {
			return true
		}
	}
	return false
}

// relevant reports whether an event on abs should trigger a rebuild.
func (m *matcher) relevant(abs string) bool {
	if m.ignored(abs) || strings.HasPrefix(filepath.Base(abs), ".") {
		return false
	}
	if len(m.globs) == 0 {
		return true
	}
	for _, root := range m.roots {
		if !paths.Within(root, abs) {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, g := range m.globs {
			if g.Match(rel) {
				return true
			}
		}
	}
	return false
}

// Watch blocks until ctx is cancelled, calling cb once per burst of
// relevant changes. Callbacks never overlap; changes arriving while cb runs
// are batched into the next call.
func Watch(ctx context.Context, opts Options, cb Callback) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newMatcher(opts)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	for _, root := range m.roots {
		if err := addDirsRecursive(w, m, root); err != nil {
			return fmt.Errorf("watch: add %s: %w", root, err)
		}
	}
	logger.Info("watcher: started", slog.String("roots", strings.Join(m.roots, ",")))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			fire = timer.C
		} else {
			timer.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			logger.Debug("watcher: change detected", slog.Int("count", len(changed)))
			cb(ctx, changed)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, m, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !m.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-ignored subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, m *matcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if abs, absErr := filepath.Abs(path); absErr == nil && m.ignored(abs) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
