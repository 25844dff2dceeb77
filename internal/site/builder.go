package site

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/paths"
)

// Roots are the global locations every category resolves against.
type Roots struct {
	Source string
	Output string
	// Logo is the conventional logo location relative to a category's
	// source directory, e.g. "images/logo.png". Empty disables logos.
	Logo string
	// Standalone is the subdirectory of a category's output that receives
	// inlined page variants. Empty when standalone pages are off.
	Standalone string
}

// Assets answers questions about files below the source root. Paths are
// slash-separated and relative to Roots.Source.
type Assets interface {
	Exists(rel string) bool
	Read(rel string) ([]byte, error)
}

// parent is the inherited state handed to each child. It is passed by value.
type parent struct {
	path   string
	source string
	output string
	logo   string
}

// Build validates the root node and resolves the whole tree.
func Build(roots Roots, root CategoryNode, assets Assets) (models.Category, error) {
	if err := root.ValidateRoot(); err != nil {
		return models.Category{}, fmt.Errorf("site: %w: %w", apperr.ErrInvalidConfig, err)
	}

	b := builder{roots: roots, assets: assets}
	// The root has no parent; this stand-in supplies the inheritance roots.
	cat := b.category(parent{source: roots.Source, output: roots.Output}, root, true)

	if err := checkCollisions(roots, cat); err != nil {
		return models.Category{}, err
	}
	return cat, nil
}

type builder struct {
	roots  Roots
	assets Assets
}

func (b builder) category(p parent, n CategoryNode, isRoot bool) models.Category {
	rel := n.Path
	if rel == "" && !isRoot {
		rel = n.Name
	}

	cat := models.Category{
		Name:   n.Name,
		Path:   filepath.ToSlash(paths.Resolve(p.path, rel)),
		Source: paths.Resolve(p.source, rel),
		Output: paths.Resolve(p.output, rel),
		Logo:   p.logo,
	}
	if cat.Path == "." {
		cat.Path = ""
	}

	if b.roots.Logo != "" {
		own := path.Join(cat.Path, b.roots.Logo)
		if b.assets != nil && b.assets.Exists(own) {
			cat.Logo = own
		}
	}

	next := parent{path: cat.Path, source: cat.Source, output: cat.Output, logo: cat.Logo}

	if n.Categories != nil {
		cat.Categories = make([]models.Category, 0, len(n.Categories))
		for _, child := range n.Categories {
			cat.Categories = append(cat.Categories, b.category(next, child, false))
		}
	}

	if n.Files != nil {
		cat.Articles = make([]models.Article, 0, len(n.Files))
		for _, f := range n.Files {
			cat.Articles = append(cat.Articles, b.article(cat, f))
		}
	}

	cat.Meta = categoryMeta(cat)
	return cat
}

func (b builder) article(cat models.Category, f FileNode) models.Article {
	a := models.Article{
		Name:   f.Name,
		Title:  f.Title,
		WIP:    f.WIP,
		Path:   cat.Path,
		Source: filepath.Join(cat.Source, f.Name+".md"),
		Output: cat.Output,
	}
	if a.Title == "" {
		a.Title = b.sourceTitle(path.Join(cat.Path, f.Name+".md"))
	}
	if a.Title == "" {
		a.Title = f.Name
	}
	a.Meta = models.ArticleMeta{
		Name:  a.Name,
		Title: a.Title,
		WIP:   a.WIP,
		URL:   path.Join(cat.Path, a.Name+".html"),
	}
	return a
}

// sourceTitle reads the title from the article's front matter or first H1.
// An unreadable source is reported later by the compile step.
func (b builder) sourceTitle(rel string) string {
	if b.assets == nil {
		return ""
	}
	data, err := b.assets.Read(rel)
	if err != nil {
		return ""
	}
	return parser.Parse(data).Title
}

func categoryMeta(c models.Category) models.CategoryMeta {
	meta := models.CategoryMeta{Name: c.Name, Path: c.Path, Logo: c.Logo}
	for _, a := range c.Articles {
		meta.Articles = append(meta.Articles, a.Meta)
	}
	for _, child := range c.Categories {
		meta.Categories = append(meta.Categories, child.Meta)
	}
	return meta
}

// checkCollisions rejects trees where a category leaves the output root,
// two categories share an output directory or two pages (linked or
// standalone) share an output file. Tasks rely on disjoint outputs to run
// without locking.
func checkCollisions(roots Roots, root models.Category) error {
	dirs := make(map[string]string)
	files := make(map[string]string)
	claim := func(file, key string) error {
		if other, ok := files[file]; ok {
			return fmt.Errorf("site: articles %q and %q both write to %q: %w",
				other, key, file, apperr.ErrInvalidConfig)
		}
		files[file] = key
		return nil
	}
	var err error
	root.Walk(func(c models.Category) {
		if err != nil {
			return
		}
		out := filepath.Clean(c.Output)
		if !paths.Within(roots.Output, out) {
			err = fmt.Errorf("site: category %q writes to %q outside %q: %w",
				c.Name, c.Output, roots.Output, apperr.ErrInvalidConfig)
			return
		}
		if other, ok := dirs[out]; ok {
			err = fmt.Errorf("site: categories %q and %q both write to %q: %w",
				other, c.Path, c.Output, apperr.ErrInvalidConfig)
			return
		}
		dirs[out] = c.Path
		for _, a := range c.Articles {
			if err = claim(filepath.Join(out, a.Name+".html"), a.Key()); err != nil {
				return
			}
			if roots.Standalone == "" {
				continue
			}
			if err = claim(filepath.Join(out, roots.Standalone, a.Name+".html"), a.Key()); err != nil {
				return
			}
		}
	})
	return err
}
