// Package models defines the resolved content tree shared by the build packages.
package models

// Category is a resolved node of the content hierarchy. Values are produced
// once per build invocation and never modified afterwards.
type Category struct {
	Name string
	// Path is the slash-separated location relative to both the source and
	// output roots. The root category has an empty path.
	Path   string
	Source string
	Output string
	// Logo is the output-root relative path of the nearest logo asset, either
	// this category's own or an ancestor's. Empty when none exists.
	Logo string

	// Categories and Articles are nil when the configuration declares none.
	Categories []Category
	Articles   []Article

	Meta CategoryMeta
}

// Article is a single Markdown document mapped to one output page.
type Article struct {
	Name  string
	Title string
	WIP   bool
	// Path is the owning category's path.
	Path string
	// Source is the resolved Markdown file.
	Source string
	// Output is the resolved output directory, equal to the owning category's.
	Output string
	Meta   ArticleMeta
}

// CategoryMeta is the template-facing projection of a category.
type CategoryMeta struct {
	Name       string         `json:"name"`
	Path       string         `json:"path"`
	Logo       string         `json:"logo,omitempty"`
	Articles   []ArticleMeta  `json:"articles,omitempty"`
	Categories []CategoryMeta `json:"categories,omitempty"`
}

// ArticleMeta is the template-facing projection of an article.
type ArticleMeta struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	WIP   bool   `json:"wip"`
	// URL is the page location relative to the output root.
	URL string `json:"url"`
}

// Walk visits c and all of its descendants depth first, parents before children.
func (c Category) Walk(fn func(Category)) {
	fn(c)
	for _, child := range c.Categories {
		child.Walk(fn)
	}
}

// AllArticles returns every article in the tree in walk order.
func (c Category) AllArticles() []Article {
	var out []Article
	c.Walk(func(cat Category) {
		out = append(out, cat.Articles...)
	})
	return out
}

// Key returns the article's slash path relative to the roots, without extension.
func (a Article) Key() string {
	if a.Path == "" {
		return a.Name
	}
	return a.Path + "/" + a.Name
}
