package styles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
)

// DartSass compiles full Sass through an external Dart Sass binary speaking
// the embedded protocol. The transpiler is started on first use.
type DartSass struct {
	binary string
	minify bool

	once sync.Once
	tr   *godartsass.Transpiler
	err  error
	mu   sync.Mutex
}

// NewDartSass returns a compiler driving binary (defaults to "sass" on PATH).
func NewDartSass(binary string, minify bool) (*DartSass, error) {
	if binary == "" {
		binary = "sass"
	}
	return &DartSass{binary: binary, minify: minify}, nil
}

func (d *DartSass) transpiler() (*godartsass.Transpiler, error) {
	d.once.Do(func() {
		d.tr, d.err = godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: d.binary})
		if d.err != nil {
			d.err = fmt.Errorf("styles: start dart-sass %q: %w", d.binary, d.err)
		}
	})
	return d.tr, d.err
}

// Compile implements Compiler.
func (d *DartSass) Compile(ctx context.Context, file string, includePaths []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr, err := d.transpiler()
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	style := godartsass.OutputStyleExpanded
	if d.minify {
		style = godartsass.OutputStyleCompressed
	}
	syntax := godartsass.SourceSyntaxSCSS
	switch strings.ToLower(filepath.Ext(file)) {
	case ".sass":
		syntax = godartsass.SourceSyntaxSASS
	case ".css":
		syntax = godartsass.SourceSyntaxCSS
	}

	abs, _ := filepath.Abs(file)
	res, err := tr.Execute(godartsass.Args{
		Source:       string(src),
		URL:          "file://" + filepath.ToSlash(abs),
		IncludePaths: append([]string{filepath.Dir(file)}, includePaths...),
		OutputStyle:  style,
		SourceSyntax: syntax,
	})
	if err != nil {
		return nil, fmt.Errorf("styles: compile %s: %w", file, err)
	}
	return []byte(res.CSS), nil
}

// Close stops the transpiler if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tr == nil {
		return nil
	}
	err := d.tr.Close()
	d.tr = nil
	return err
}
