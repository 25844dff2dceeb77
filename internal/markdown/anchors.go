package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

type anchorTransformer struct{}

// Transform appends a self link to every heading that carries an id.
func (anchorTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			headings = append(headings, h)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, h := range headings {
		raw, ok := h.AttributeString("id")
		if !ok {
			continue
		}
		id, ok := raw.([]byte)
		if !ok || len(id) == 0 {
			continue
		}
		link := ast.NewLink()
		link.Destination = append([]byte("#"), id...)
		link.SetAttributeString("class", []byte("anchor"))
		link.AppendChild(link, ast.NewString([]byte("#")))
		h.AppendChild(h, link)
	}
}

type anchorExtension struct{}

// HeadingAnchors adds a "#" permalink to each heading. It relies on
// parser.WithAutoHeadingID or explicit {#id} attributes.
var HeadingAnchors goldmark.Extender = anchorExtension{}

func (anchorExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(anchorTransformer{}, 300)))
}
