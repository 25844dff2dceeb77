// Package render executes the page template with partials.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/quire/internal/models"
)

// Site is the site-wide data available to every page.
type Site struct {
	Title       string
	Environment string
	BaseURL     string
	Standalone  bool
}

// Data is the value a page template executes against.
type Data struct {
	Site     Site
	Root     models.CategoryMeta
	Category models.CategoryMeta
	Article  models.ArticleMeta
	// Content is the compiled article fragment. HasContent is false when no
	// fragment was found.
	Content    template.HTML
	HasContent bool
	// RootURL is the relative prefix from the page to the output root, e.g. "../../".
	RootURL string
}

// Engine renders pages from a main template and an optional partial glob.
// Templates are parsed on first use and kept until Reset.
type Engine struct {
	templatePath string
	partialGlob  string

	mu   sync.Mutex
	tmpl *template.Template
}

// New returns an engine for the given template file and partial glob.
func New(templatePath, partialGlob string) *Engine {
	return &Engine{templatePath: templatePath, partialGlob: partialGlob}
}

func (e *Engine) load() (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tmpl != nil {
		return e.tmpl, nil
	}
	t, err := e.parse()
	if err != nil {
		return nil, err
	}
	e.tmpl = t
	return t, nil
}

func (e *Engine) parse() (*template.Template, error) {
	name := filepath.Base(e.templatePath)
	t, err := template.New(name).Funcs(Funcs()).ParseFiles(e.templatePath)
	if err != nil {
		return nil, fmt.Errorf("render: parse %s: %w", e.templatePath, err)
	}
	if e.partialGlob == "" {
		return t, nil
	}
	matches, err := filepath.Glob(e.partialGlob)
	if err != nil {
		return nil, fmt.Errorf("render: partials %s: %w", e.partialGlob, err)
	}
	if len(matches) > 0 {
		if t, err = t.ParseFiles(matches...); err != nil {
			return nil, fmt.Errorf("render: parse partials: %w", err)
		}
	}
	return t, nil
}

// Reset drops the parsed templates so the next Render reads them from disk.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.tmpl = nil
	e.mu.Unlock()
}

// Render executes the page template against data.
func (e *Engine) Render(data Data) ([]byte, error) {
	t, err := e.load()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render: execute %s: %w", e.templatePath, err)
	}
	return buf.Bytes(), nil
}

// RootURL returns the relative prefix leading from a page in dir (slash
// path relative to the output root) back to the root.
func RootURL(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

// Funcs are the helpers available in page templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"rel": func(rootURL, p string) string {
			return rootURL + strings.TrimPrefix(p, "/")
		},
		"join":  path.Join,
		"upper": strings.ToUpper,
	}
}
