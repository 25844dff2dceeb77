// Package site resolves the configured category/article hierarchy into an
// immutable tree of source and output locations.
package site

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// CategoryNode is one category as declared in the configuration.
type CategoryNode struct {
	Name string `yaml:"name"`
	// Path overrides the directory name relative to the parent. Defaults to Name.
	Path       string         `yaml:"path"`
	Categories []CategoryNode `yaml:"categories"`
	Files      []FileNode     `yaml:"files"`
}

// FileNode declares one article. A bare YAML string is accepted as the name.
type FileNode struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	WIP   bool   `yaml:"wip"`
}

var fileNameRe = regexp.MustCompile(`^[^/\\]+$`)

// UnmarshalYAML accepts both `- intro` and `- {name: intro, title: Intro}`.
func (f *FileNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Name = value.Value
		return nil
	}
	type plain FileNode
	return value.Decode((*plain)(f))
}

// Validate validates the file declaration.
func (f FileNode) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required,
			validation.Match(fileNameRe).Error("must not contain path separators"),
			validation.NotIn(".", ".."),
		),
	)
}

// Validate validates a non-root category and everything below it.
func (n CategoryNode) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name,
			validation.Required,
			validation.When(n.Path == "", validation.By(relativePath)),
		),
		validation.Field(&n.Path, validation.By(relativePath)),
		validation.Field(&n.Categories),
		validation.Field(&n.Files),
	)
}

// ValidateRoot validates the root category, whose name is optional.
func (n CategoryNode) ValidateRoot() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Path, validation.By(relativePath)),
		validation.Field(&n.Categories),
		validation.Field(&n.Files),
	)
}

func relativePath(value interface{}) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return errors.New("must be relative")
	}
	cleaned := filepath.ToSlash(filepath.Clean(p))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return errors.New("must not escape the parent directory")
	}
	return nil
}
