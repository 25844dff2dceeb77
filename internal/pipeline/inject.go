package pipeline

import (
	"context"
	"fmt"
	"html/template"
	"path"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/task"
)

// StandaloneDir is the subdirectory of a category's output holding the
// self-contained page variants.
const StandaloneDir = "standalone"

// PagePath returns the output-root relative location of an article's page.
func PagePath(a models.Article) string {
	return path.Join(a.Path, a.Name+".html")
}

// StandalonePath returns the output-root relative location of an article's
// standalone page.
func StandalonePath(a models.Article) string {
	return path.Join(a.Path, StandaloneDir, a.Name+".html")
}

// injectTask renders the compiled fragment of a into the page template. A
// missing fragment renders with empty content.
func (p *Pipeline) injectTask(root, c models.Category, a models.Article) *task.Task {
	return task.New("inject:"+a.Key(), func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fragment, err := p.work.ReadIfExists(fragmentPath(a))
		if err != nil {
			return err
		}

		page, err := p.renderer.Render(render.Data{
			Site:       p.settings.Site,
			Root:       root.Meta,
			Category:   c.Meta,
			Article:    a.Meta,
			Content:    template.HTML(fragment),
			HasContent: fragment != nil,
			RootURL:    render.RootURL(a.Path),
		})
		if err != nil {
			return err
		}
		if err := p.output.Write(PagePath(a), page); err != nil {
			return err
		}

		if p.inliner == nil {
			return nil
		}
		dir, err := p.output.Abs(a.Path)
		if err != nil {
			return err
		}
		standalone, err := p.inliner.Inline(page, dir)
		if err != nil {
			return fmt.Errorf("pipeline: standalone %s: %w", a.Key(), err)
		}
		return p.output.Write(StandalonePath(a), standalone)
	}).WithDisplayName("inject " + a.Key())
}
