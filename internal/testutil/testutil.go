// Package testutil provides shared test helpers for laying out sample sites.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/site"
)

// PNG is the signature of a PNG image, enough for content sniffing.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// PageTemplate links the root stylesheet and the category logo so
// standalone pages have something to inline.
const PageTemplate = `<!doctype html>
<html><head><title>{{.Article.Title}} | {{.Site.Title}}</title>
<link rel="stylesheet" href="{{.RootURL}}styles/main.css">
</head><body>
{{if .Category.Logo}}<img class="logo" src="{{rel .RootURL .Category.Logo}}" alt="logo">{{end}}
<main>{{if .HasContent}}{{.Content}}{{else}}<p>missing</p>{{end}}</main>
</body></html>
`

// Site is a sample site on disk.
type Site struct {
	Dir      string
	Source   string
	Output   string
	Work     string
	Template string
	Content  site.CategoryNode
}

// TestSite writes a two-level site:
//
//	src/index.md
//	src/styles/main.css, src/styles/_vars.css
//	src/images/logo.png
//	src/guides/intro.md, src/guides/advanced.md
func TestSite(t *testing.T) Site {
	t.Helper()
	dir := t.TempDir()
	s := Site{
		Dir:      dir,
		Source:   filepath.Join(dir, "src"),
		Output:   filepath.Join(dir, "public"),
		Work:     filepath.Join(dir, ".quire", "raw"),
		Template: filepath.Join(dir, "templates", "page.html"),
		Content: site.CategoryNode{
			Name:  "Docs",
			Files: []site.FileNode{{Name: "index", Title: "Home"}},
			Categories: []site.CategoryNode{{
				Name: "guides",
				Files: []site.FileNode{
					{Name: "intro", Title: "Intro"},
					{Name: "advanced", Title: "Advanced", WIP: true},
				},
			}},
		},
	}

	WriteFiles(t, dir, map[string]string{
		"src/index.md":           "---\ntitle: Home\n---\n# Welcome\n\nStart here.\n",
		"src/styles/main.css":    "@import \"vars\";\nbody { margin: 0 }\n",
		"src/styles/_vars.css":   "a { color: red }\n",
		"src/images/logo.png":    string(PNG),
		"src/guides/intro.md":    "# Intro\n\nFirst steps.\n",
		"src/guides/advanced.md": "# Advanced\n\n```go\nfunc main() {}\n```\n",
		"templates/page.html":    PageTemplate,
	})
	return s
}

// WriteFiles writes files (slash paths relative to dir), creating parents.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestCache opens a temporary build cache that is closed on cleanup.
func TestCache(t *testing.T) *cache.DB {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
