package internal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/logfields"
	"github.com/starford/quire/internal/markdown"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/site"
	"github.com/starford/quire/internal/styles"
	"github.com/starford/quire/internal/task"
)

// builder owns the collaborators of one invocation and re-assembles the
// task graph for every run so front matter titles stay current.
type builder struct {
	cfg      *Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	cache    *cache.DB
	runner   *task.Runner
	recorder *metrics.Recorder
}

func newBuilder(app *application, reg prom.Registerer) (*builder, error) {
	cfg := app.config
	b := &builder{
		cfg:      cfg,
		logger:   app.logger,
		recorder: metrics.NewRecorder(reg),
	}

	compiler, err := styles.New(cfg.Styles)
	if err != nil {
		return nil, err
	}

	server := cfg.Server(app.environment)
	opts := []pipeline.Option{
		pipeline.WithLogger(app.logger),
		pipeline.WithMarkdown(markdown.New(cfg.Markdown)),
		pipeline.WithStyles(compiler),
	}
	if cfg.Cache.Enabled {
		db, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			compiler.Close()
			return nil, err
		}
		b.cache = db
		opts = append(opts, pipeline.WithCache(db))
	}

	b.pipeline, err = pipeline.New(pipeline.Settings{
		SourceRoot:   cfg.Site.Source,
		OutputRoot:   cfg.Site.Output,
		WorkRoot:     cfg.Site.WorkDir,
		Template:     cfg.Site.Template,
		Partials:     cfg.Site.Partials,
		Images:       cfg.Site.Images,
		Styles:       cfg.Site.Styles,
		IncludePaths: cfg.Site.IncludePaths,
		Standalone:   cfg.Site.Standalone,
		InstallDir:   server.InstallDir,
		Site: render.Site{
			Title:       cfg.Site.Title,
			Environment: app.environment,
			BaseURL:     server.BaseURL,
			Standalone:  cfg.Site.Standalone,
		},
	}, opts...)
	if err != nil {
		b.Close()
		compiler.Close()
		return nil, err
	}

	policy := task.BestEffort
	if cfg.Runner.FailFast {
		policy = task.FailFast
	}
	b.runner = task.NewRunner(
		task.WithPolicy(policy),
		task.WithMaxParallel(cfg.Runner.MaxParallel),
		task.WithLogger(app.logger),
		task.WithObserver(b.recorder),
	)
	return b, nil
}

// assemble resolves the content tree and builds a fresh task graph.
func (b *builder) assemble() (models.Category, *task.Graph, error) {
	roots := site.Roots{
		Source: b.cfg.Site.Source,
		Output: b.cfg.Site.Output,
		Logo:   filepath.ToSlash(b.cfg.Site.Logo),
	}
	if b.cfg.Site.Standalone {
		roots.Standalone = pipeline.StandaloneDir
	}
	root, err := site.Build(roots, b.cfg.Content, b.pipeline.Source())
	if err != nil {
		return models.Category{}, nil, err
	}
	// Template edits must show up in the next watch or serve rebuild.
	b.pipeline.Reload()
	g := task.NewGraph()
	if err := b.pipeline.Register(root, g); err != nil {
		return models.Category{}, nil, err
	}
	return root, g, nil
}

// run executes target and returns the tree it was assembled from.
func (b *builder) run(ctx context.Context, target string) (models.Category, error) {
	root, g, err := b.assemble()
	if err != nil {
		return models.Category{}, err
	}
	t, err := g.Lookup(target)
	if err != nil {
		return models.Category{}, fmt.Errorf("unknown target %q: %w", target, err)
	}

	b.logger.Info("build: target started", logfields.Target(target))
	start := time.Now()
	err = b.runner.Run(ctx, t)
	elapsed := time.Since(start)

	if err != nil {
		b.logger.Error("build: target failed",
			logfields.Target(target),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000),
			logfields.Error(err))
		return root, err
	}
	b.logger.Info("build: target finished",
		logfields.Target(target),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return root, nil
}

// Build satisfies siteservice.Builder; observation happens in the service.
func (b *builder) Build(ctx context.Context) (models.Category, error) {
	return b.run(ctx, pipeline.TargetBuild)
}

// Close releases the cache and the stylesheet compiler.
func (b *builder) Close() {
	if b.cache != nil {
		if err := b.cache.Close(); err != nil {
			b.logger.Warn("build: close cache", logfields.Error(err))
		}
	}
	if b.pipeline != nil {
		if err := b.pipeline.Close(); err != nil {
			b.logger.Warn("build: close styles compiler", logfields.Error(err))
		}
	}
}
