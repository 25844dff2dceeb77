// Package styles compiles stylesheets into minified CSS.
package styles

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Compiler names.
const (
	CompilerNative   = "native"
	CompilerDartSass = "dart-sass"
)

// Options selects and configures the stylesheet compiler.
type Options struct {
	Compiler       string `yaml:"compiler"`
	DartSassBinary string `yaml:"dart_sass_binary"`
	Minify         bool   `yaml:"minify"`
}

// Compiler turns one stylesheet entry point into CSS.
type Compiler interface {
	Compile(ctx context.Context, file string, includePaths []string) ([]byte, error)
	Close() error
}

// New returns the compiler selected by opts.
func New(opts Options) (Compiler, error) {
	switch opts.Compiler {
	case "", CompilerNative:
		return NewNative(opts.Minify), nil
	case CompilerDartSass:
		return NewDartSass(opts.DartSassBinary, opts.Minify)
	default:
		return nil, fmt.Errorf("styles: unknown compiler %q", opts.Compiler)
	}
}

// IsPartial reports whether file is a Sass partial, which is only ever
// imported and never compiled on its own.
func IsPartial(file string) bool {
	return strings.HasPrefix(filepath.Base(file), "_")
}

// OutputName maps a stylesheet name to its compiled file name.
func OutputName(file string) string {
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + ".css"
}
