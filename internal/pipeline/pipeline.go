// Package pipeline turns a resolved category tree into a graph of build tasks.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/inline"
	"github.com/starford/quire/internal/markdown"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/styles"
)

// Settings are the global locations and switches a pipeline is built from.
type Settings struct {
	SourceRoot string
	OutputRoot string
	// WorkRoot holds compiled Markdown fragments between the compile and
	// inject steps.
	WorkRoot string

	Template string
	Partials string

	// Images and Styles are glob patterns relative to each category's
	// source directory.
	Images       []string
	Styles       []string
	IncludePaths []string

	Standalone bool
	// InstallDir is the destination of the install target. Empty disables it.
	InstallDir string

	Site render.Site
}

// Renderer produces a full page from template data.
type Renderer interface {
	Render(data render.Data) ([]byte, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used by build tasks.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMarkdown replaces the default Markdown compiler.
func WithMarkdown(c *markdown.Compiler) Option {
	return func(p *Pipeline) { p.markdown = c }
}

// WithStyles replaces the default stylesheet compiler.
func WithStyles(c styles.Compiler) Option {
	return func(p *Pipeline) { p.styles = c }
}

// WithRenderer replaces the template engine.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithCache enables incremental Markdown compilation.
func WithCache(s cache.Store) Option {
	return func(p *Pipeline) { p.cache = s }
}

// WithInlineOptions selects which references standalone pages embed.
func WithInlineOptions(o inline.Options) Option {
	return func(p *Pipeline) { p.inlineOpts = o }
}

// Pipeline holds the collaborators shared by every task it assembles.
type Pipeline struct {
	settings Settings

	source *storage.FS
	output *storage.FS
	work   *storage.FS

	markdown   *markdown.Compiler
	styles     styles.Compiler
	renderer   Renderer
	inliner    *inline.Inliner
	inlineOpts inline.Options
	cache      cache.Store
	logger     *slog.Logger
}

// New validates s and prepares the storage roots.
func New(s Settings, opts ...Option) (*Pipeline, error) {
	if s.SourceRoot == "" || s.OutputRoot == "" || s.WorkRoot == "" {
		return nil, errors.New("pipeline: source, output and work roots are required")
	}

	p := &Pipeline{
		settings:   s,
		inlineOpts: inline.DefaultOptions(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.source, err = storage.NewFS(s.SourceRoot, false); err != nil {
		return nil, fmt.Errorf("pipeline: source: %w", err)
	}
	if p.output, err = storage.NewFS(s.OutputRoot, true); err != nil {
		return nil, fmt.Errorf("pipeline: output: %w", err)
	}
	if p.work, err = storage.NewFS(s.WorkRoot, true); err != nil {
		return nil, fmt.Errorf("pipeline: work: %w", err)
	}

	if p.markdown == nil {
		p.markdown = markdown.New(markdown.DefaultOptions())
	}
	if p.styles == nil {
		p.styles = styles.NewNative(true)
	}
	if p.renderer == nil {
		if s.Template == "" {
			return nil, errors.New("pipeline: template is required")
		}
		p.renderer = render.New(s.Template, s.Partials)
	}
	if s.Standalone {
		p.inliner = inline.New(p.output.Root(), p.inlineOpts)
	}
	return p, nil
}

// Source exposes the source root, which also answers asset lookups for the
// tree builder.
func (p *Pipeline) Source() *storage.FS { return p.source }

// Output exposes the output root.
func (p *Pipeline) Output() *storage.FS { return p.output }

// Reload makes the renderer re-read its templates on the next page, when it
// caches them.
func (p *Pipeline) Reload() {
	if r, ok := p.renderer.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// Close releases the stylesheet compiler.
func (p *Pipeline) Close() error {
	return p.styles.Close()
}
