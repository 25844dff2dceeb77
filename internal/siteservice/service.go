// Package siteservice exposes the resolved site and serialized builds to the
// HTTP API and the MCP server.
package siteservice

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/storage"
)

// Build event kinds passed to listeners.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Builder runs the build target and returns the tree it built.
type Builder interface {
	Build(ctx context.Context) (models.Category, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context) (models.Category, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context) (models.Category, error) { return f(ctx) }

// Observer receives build timings, e.g. a metrics recorder.
type Observer interface {
	ObserveBuild(target string, d time.Duration, err error)
}

// Listener is notified when a build starts and finishes.
type Listener func(kind string, r Result)

// Result describes one build run.
type Result struct {
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Articles   int       `json:"articles"`
}

// ArticleSummary is a lightweight article item in list responses.
type ArticleSummary struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	WIP      bool   `json:"wip"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// ArticleDetail is an article with its Markdown source.
type ArticleDetail struct {
	ArticleSummary
	Source      string         `json:"source"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithObserver records build timings.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithListener adds a build listener.
func WithListener(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// Service serves site metadata and runs at most one build at a time.
type Service struct {
	source    storage.Provider
	builder   Builder
	observer  Observer
	listeners []Listener

	building atomic.Bool

	mu   sync.RWMutex
	tree models.Category
	last *Result
}

// NewService creates a service over an already resolved tree.
func NewService(tree models.Category, source storage.Provider, builder Builder, opts ...Option) *Service {
	s := &Service{tree: tree, source: source, builder: builder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tree returns the template projection of the whole site.
func (s *Service) Tree() models.CategoryMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Meta
}

// Articles lists every article sorted by key.
func (s *Service) Articles() []ArticleSummary {
	s.mu.RLock()
	root := s.tree
	s.mu.RUnlock()

	var out []ArticleSummary
	root.Walk(func(c models.Category) {
		for _, a := range c.Articles {
			out = append(out, summary(c, a))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Article returns the article with the given key ("guides/intro") together
// with its Markdown source.
func (s *Service) Article(_ context.Context, key string) (*ArticleDetail, error) {
	s.mu.RLock()
	root := s.tree
	s.mu.RUnlock()

	var (
		found bool
		item  ArticleSummary
	)
	root.Walk(func(c models.Category) {
		for _, a := range c.Articles {
			if !found && a.Key() == key {
				found, item = true, summary(c, a)
			}
		}
	})
	if !found {
		return nil, apperr.ErrNotFound
	}

	data, err := s.source.Read(key + ".md")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	parsed := parser.Parse(data)
	tags := parsed.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ArticleDetail{
		ArticleSummary: item,
		Source:         string(data),
		Tags:           tags,
		Frontmatter:    parsed.Frontmatter,
	}, nil
}

// Build runs the builder unless a build is already running, in which case
// it returns apperr.ErrBuildInProgress. A failed build is reported both in
// the Result and as the error.
func (s *Service) Build(ctx context.Context) (Result, error) {
	if !s.building.CompareAndSwap(false, true) {
		return Result{}, apperr.ErrBuildInProgress
	}
	defer s.building.Store(false)

	res := Result{Target: "build", StartedAt: time.Now().UTC()}
	s.notify(EventStarted, res)

	tree, err := s.builder.Build(ctx)
	elapsed := time.Since(res.StartedAt)
	res.DurationMS = elapsed.Milliseconds()
	if s.observer != nil {
		s.observer.ObserveBuild(res.Target, elapsed, err)
	}

	s.mu.Lock()
	if err == nil {
		s.tree = tree
		res.OK = true
		res.Articles = len(tree.AllArticles())
	} else {
		res.Error = err.Error()
	}
	last := res
	s.last = &last
	s.mu.Unlock()

	if err != nil {
		s.notify(EventFailed, res)
		return res, err
	}
	s.notify(EventCompleted, res)
	return res, nil
}

// Building reports whether a build is currently running.
func (s *Service) Building() bool {
	return s.building.Load()
}

// LastBuild returns the most recent build result, if any.
func (s *Service) LastBuild() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

func (s *Service) notify(kind string, r Result) {
	for _, l := range s.listeners {
		l(kind, r)
	}
}

func summary(c models.Category, a models.Article) ArticleSummary {
	return ArticleSummary{
		Key:      a.Key(),
		Title:    a.Title,
		WIP:      a.WIP,
		URL:      a.Meta.URL,
		Category: c.Name,
	}
}
