package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/fsops"
	"github.com/starford/quire/internal/logfields"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/task"
)

// Top-level target names.
const (
	TargetClean   = "clean"
	TargetBuild   = "build"
	TargetInstall = "install"
)

// Register assembles the whole tree into g: every category under its output
// path plus the clean, build and install targets.
func (p *Pipeline) Register(root models.Category, g *task.Graph) error {
	build, err := p.Category(root, root, g)
	if err != nil {
		return err
	}
	if err := g.RegisterAs(root.Output, build); err != nil {
		return err
	}

	if p.cache != nil {
		build = task.Series(TargetBuild, build, p.pruneTask(root))
	}
	if err := g.RegisterAs(TargetBuild, build); err != nil {
		return err
	}

	clean := task.Parallel(TargetClean,
		task.Clean(p.output.Root()),
		task.Clean(p.work.Root()),
	)
	if err := g.RegisterAs(TargetClean, clean); err != nil {
		return err
	}

	return g.RegisterAs(TargetInstall, task.Series(TargetInstall, build, p.installTask()))
}

// Category returns the task building c and its descendants:
//
//	series(parallel(images, styles), parallel(articles...), parallel(children...))
//
// where each article is series(markdown, inject). Child category tasks are
// registered in g under their output paths. root supplies the site-wide
// template metadata.
func (p *Pipeline) Category(root, c models.Category, g *task.Graph) (*task.Task, error) {
	label := c.Path
	if label == "" {
		label = "/"
	}

	assets := task.Parallel("assets:"+label, p.imagesTask(c), p.stylesTask(c))

	articles := make([]*task.Task, 0, len(c.Articles))
	for _, a := range c.Articles {
		articles = append(articles, task.Series("article:"+a.Key(),
			p.markdownTask(a),
			p.injectTask(root, c, a),
		).WithDisplayName(a.Title))
	}

	children := make([]*task.Task, 0, len(c.Categories))
	for _, child := range c.Categories {
		t, err := p.Category(root, child, g)
		if err != nil {
			return nil, err
		}
		if err := g.RegisterAs(child.Output, t); err != nil {
			return nil, fmt.Errorf("pipeline: register %s: %w", child.Path, err)
		}
		children = append(children, t)
	}

	p.logger.Debug("pipeline: category assembled",
		logfields.Category(label),
		slog.Int("articles", len(articles)),
		slog.Int("categories", len(children)))

	return task.Series("category:"+label,
		assets,
		task.Parallel("articles:"+label, articles...),
		task.Parallel("categories:"+label, children...),
	).WithDisplayName(c.Name), nil
}

func (p *Pipeline) imagesTask(c models.Category) *task.Task {
	copies := make([]*task.Task, 0, len(p.settings.Images))
	for _, pattern := range p.settings.Images {
		src := paths.Resolve(c.Source, pattern)
		dest := paths.Resolve(c.Output, fsops.Base(pattern))
		copies = append(copies, task.Copy(src, dest))
	}
	return task.Parallel("images:"+c.Path, copies...)
}

func (p *Pipeline) installTask() *task.Task {
	dir := p.settings.InstallDir
	if dir == "" {
		return task.New("install:copy", func(context.Context) error {
			return fmt.Errorf("pipeline: no install directory configured: %w", apperr.ErrInvalidConfig)
		})
	}
	return task.Copy(filepath.Join(p.output.Root(), "**"), dir)
}

// pruneTask drops cache entries of articles no longer in the tree.
func (p *Pipeline) pruneTask(root models.Category) *task.Task {
	live := make(map[string]struct{})
	for _, a := range root.AllArticles() {
		live[a.Key()] = struct{}{}
	}
	return task.New("cache:prune", func(context.Context) error {
		pruner, ok := p.cache.(interface {
			Prune(map[string]struct{}) (int, error)
		})
		if !ok {
			return nil
		}
		n, err := pruner.Prune(live)
		if err != nil {
			return err
		}
		if n > 0 {
			p.logger.Debug("pipeline: pruned cache entries", slog.Int("count", n))
		}
		return nil
	})
}
