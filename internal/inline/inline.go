// Package inline produces self-contained HTML pages by embedding the local
// stylesheets, scripts and images a page references.
package inline

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options selects what gets embedded.
type Options struct {
	Styles  bool
	Scripts bool
	Images  bool
}

// DefaultOptions embeds everything.
func DefaultOptions() Options {
	return Options{Styles: true, Scripts: true, Images: true}
}

// Inliner rewrites pages. Remote references (with a scheme or host) are left
// untouched; a missing local reference is an error.
type Inliner struct {
	opts     Options
	siteRoot string
}

// New returns an inliner. siteRoot resolves root-relative references such as
// "/styles/main.css".
func New(siteRoot string, opts Options) *Inliner {
	return &Inliner{opts: opts, siteRoot: siteRoot}
}

var cssURLRe = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)

// Inline parses page and embeds every local asset it references, resolving
// relative references against baseDir.
func (in *Inliner) Inline(page []byte, baseDir string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("inline: parse: %w", err)
	}

	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Link, atom.Script, atom.Img:
				nodes = append(nodes, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range nodes {
		var err error
		switch n.DataAtom {
		case atom.Link:
			err = in.link(n, baseDir)
		case atom.Script:
			err = in.script(n, baseDir)
		case atom.Img:
			err = in.img(n, baseDir)
		}
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("inline: render: %w", err)
	}
	return buf.Bytes(), nil
}

func (in *Inliner) link(n *html.Node, baseDir string) error {
	rel := strings.ToLower(attr(n, "rel"))
	href := attr(n, "href")
	if !isLocal(href) {
		return nil
	}
	switch {
	case in.opts.Styles && hasToken(rel, "stylesheet"):
		file := in.resolve(href, baseDir)
		css, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("inline: stylesheet %s: %w", href, err)
		}
		if in.opts.Images {
			if css, err = in.cssAssets(css, filepath.Dir(file)); err != nil {
				return err
			}
		}
		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		if media := attr(n, "media"); media != "" {
			style.Attr = append(style.Attr, html.Attribute{Key: "media", Val: media})
		}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: string(css)})
		n.Parent.InsertBefore(style, n)
		n.Parent.RemoveChild(n)
	case in.opts.Images && hasToken(rel, "icon"):
		uri, err := in.dataURI(in.resolve(href, baseDir))
		if err != nil {
			return fmt.Errorf("inline: icon %s: %w", href, err)
		}
		setAttr(n, "href", uri)
	}
	return nil
}

func (in *Inliner) script(n *html.Node, baseDir string) error {
	src := attr(n, "src")
	if !in.opts.Scripts || !isLocal(src) {
		return nil
	}
	js, err := os.ReadFile(in.resolve(src, baseDir))
	if err != nil {
		return fmt.Errorf("inline: script %s: %w", src, err)
	}
	removeAttr(n, "src")
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: string(js)})
	return nil
}

func (in *Inliner) img(n *html.Node, baseDir string) error {
	src := attr(n, "src")
	if !in.opts.Images || !isLocal(src) {
		return nil
	}
	uri, err := in.dataURI(in.resolve(src, baseDir))
	if err != nil {
		return fmt.Errorf("inline: image %s: %w", src, err)
	}
	setAttr(n, "src", uri)
	return nil
}

// cssAssets embeds url() references of a stylesheet located in dir.
func (in *Inliner) cssAssets(css []byte, dir string) ([]byte, error) {
	var firstErr error
	out := cssURLRe.ReplaceAllFunc(css, func(m []byte) []byte {
		ref := string(cssURLRe.FindSubmatch(m)[1])
		if firstErr != nil || !isLocal(ref) {
			return m
		}
		uri, err := in.dataURI(in.resolve(ref, dir))
		if err != nil {
			firstErr = fmt.Errorf("inline: css asset %s: %w", ref, err)
			return m
		}
		return []byte(`url("` + uri + `")`)
	})
	return out, firstErr
}

func (in *Inliner) dataURI(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return "data:" + contentType(file, data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func contentType(file string, data []byte) string {
	mt := mimetype.Detect(data)
	if !mt.Is("application/octet-stream") && !mt.Is("text/plain") {
		return mt.String()
	}
	if byExt := mime.TypeByExtension(filepath.Ext(file)); byExt != "" {
		return byExt
	}
	return mt.String()
}

func (in *Inliner) resolve(ref, baseDir string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	if strings.HasPrefix(p, "/") && in.siteRoot != "" {
		return filepath.Join(in.siteRoot, filepath.FromSlash(p))
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}

// isLocal reports whether ref points at a file on disk.
func isLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.Path != ""
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// References returns the local asset references left in page. A fully
// inlined page has none.
func References(page []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			var ref string
			switch n.DataAtom {
			case atom.Link:
				rel := strings.ToLower(attr(n, "rel"))
				if hasToken(rel, "stylesheet") || hasToken(rel, "icon") {
					ref = attr(n, "href")
				}
			case atom.Script, atom.Img:
				ref = attr(n, "src")
			case atom.Style:
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					for _, m := range cssURLRe.FindAllStringSubmatch(c.Data, -1) {
						if isLocal(m[1]) {
							refs = append(refs, m[1])
						}
					}
				}
			}
			if isLocal(ref) {
				refs = append(refs, ref)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}
