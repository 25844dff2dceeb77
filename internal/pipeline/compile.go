package pipeline

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/fsops"
	"github.com/starford/quire/internal/logfields"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/styles"
	"github.com/starford/quire/internal/task"
)

// fragmentPath is where an article's compiled fragment lives below the work root.
func fragmentPath(a models.Article) string {
	return a.Key() + ".html"
}

func (p *Pipeline) markdownTask(a models.Article) *task.Task {
	return task.New("markdown:"+a.Key(), func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := p.source.Read(a.Key() + ".md")
		if err != nil {
			return err
		}

		sum := checksum.SumAll([]byte(p.markdown.Options().Fingerprint()), src)
		if p.cache != nil && p.work.Exists(fragmentPath(a)) {
			prev, err := p.cache.Checksum(a.Key())
			if err != nil {
				return err
			}
			if prev == sum {
				p.logger.Debug("pipeline: article unchanged", logfields.Article(a.Key()))
				return nil
			}
		}

		html, err := p.markdown.Convert(parser.Parse(src).Body)
		if err != nil {
			return fmt.Errorf("pipeline: compile %s: %w", a.Key(), err)
		}
		if err := p.work.Write(fragmentPath(a), html); err != nil {
			return err
		}
		if p.cache != nil {
			return p.cache.Record(a.Key(), sum, fragmentPath(a))
		}
		return nil
	}).WithDisplayName("markdown " + a.Key())
}

// stylesTask compiles every non-partial stylesheet matching the style globs
// into the category's output directory, keeping its relative location.
func (p *Pipeline) stylesTask(c models.Category) *task.Task {
	return task.New("styles:"+c.Path, func(ctx context.Context) error {
		for _, pattern := range p.settings.Styles {
			matches, err := fsops.Expand(paths.Resolve(c.Source, pattern), false)
			if err != nil {
				return err
			}
			for _, m := range matches {
				if m.IsDir || styles.IsPartial(m.Path) {
					continue
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := p.compileStyle(ctx, c, m.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}).WithDisplayName("styles " + c.Name)
}

func (p *Pipeline) compileStyle(ctx context.Context, c models.Category, file string) error {
	rel, err := filepath.Rel(c.Source, file)
	if err != nil {
		return fmt.Errorf("pipeline: stylesheet %s: %w", file, err)
	}
	include := append([]string{filepath.Dir(file), c.Source}, p.settings.IncludePaths...)
	css, err := p.styles.Compile(ctx, file, include)
	if err != nil {
		return err
	}
	dest := path.Join(c.Path, filepath.ToSlash(styles.OutputName(rel)))
	if err := p.output.Write(dest, css); err != nil {
		return err
	}
	p.logger.Debug("pipeline: stylesheet compiled", logfields.Path(dest))
	return nil
}
