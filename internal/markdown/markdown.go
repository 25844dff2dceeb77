// Package markdown converts article bodies to HTML fragments with goldmark.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Options selects the enabled syntax extensions.
type Options struct {
	GFM            bool   `yaml:"gfm"`
	Footnotes      bool   `yaml:"footnotes"`
	Attributes     bool   `yaml:"attributes"`
	Figures        bool   `yaml:"figures"`
	HeadingAnchors bool   `yaml:"heading_anchors"`
	Highlight      bool   `yaml:"highlight"`
	HighlightStyle string `yaml:"highlight_style"`
	UnsafeHTML     bool   `yaml:"unsafe_html"`
}

// DefaultOptions enables every extension.
func DefaultOptions() Options {
	return Options{
		GFM:            true,
		Footnotes:      true,
		Attributes:     true,
		Figures:        true,
		HeadingAnchors: true,
		Highlight:      true,
		HighlightStyle: "github",
		UnsafeHTML:     true,
	}
}

// Fingerprint identifies the option set so cached output can be invalidated
// when options change.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("gfm=%t;fn=%t;attr=%t;fig=%t;anchor=%t;hl=%t:%s;unsafe=%t",
		o.GFM, o.Footnotes, o.Attributes, o.Figures, o.HeadingAnchors,
		o.Highlight, o.HighlightStyle, o.UnsafeHTML)
}

// Compiler converts Markdown to HTML. It is safe for concurrent use.
type Compiler struct {
	md   goldmark.Markdown
	opts Options
}

// New builds a compiler for the given options.
func New(opts Options) *Compiler {
	var exts []goldmark.Extender
	if opts.GFM {
		exts = append(exts, extension.GFM)
	}
	if opts.Footnotes {
		exts = append(exts, extension.Footnote)
	}
	if opts.Figures {
		exts = append(exts, Figures)
	}
	if opts.HeadingAnchors {
		exts = append(exts, HeadingAnchors)
	}
	if opts.Highlight {
		style := opts.HighlightStyle
		if style == "" {
			style = "github"
		}
		exts = append(exts, highlighting.NewHighlighting(highlighting.WithStyle(style)))
	}

	var parserOpts []parser.Option
	if opts.Attributes {
		parserOpts = append(parserOpts, parser.WithAttribute())
	}
	if opts.HeadingAnchors {
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}

	var rendererOpts []goldmark.Option
	if opts.UnsafeHTML {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}

	all := append([]goldmark.Option{
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOpts...),
	}, rendererOpts...)

	return &Compiler{md: goldmark.New(all...), opts: opts}
}

// Options returns the options the compiler was built with.
func (c *Compiler) Options() Options { return c.opts }

// Convert renders a Markdown body (front matter already removed).
func (c *Compiler) Convert(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown: convert: %w", err)
	}
	return buf.Bytes(), nil
}
