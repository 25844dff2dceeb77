package styles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

var importRe = regexp.MustCompile(`(?m)^[ \t]*@(?:import|use)[ \t]+(?:url\()?["']([^"']+)["']\)?[^;\n]*;[ \t]*$`)

// Native resolves @import/@use of local stylesheets across the include paths
// (honouring the Sass "_partial" and extension conventions), inlines them and
// minifies the result. It handles plain CSS; Sass-only syntax needs dart-sass.
type Native struct {
	minify bool
	m      *minify.M
}

// NewNative returns the built-in compiler.
func NewNative(minifyOutput bool) *Native {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return &Native{minify: minifyOutput, m: m}
}

// Compile implements Compiler.
func (n *Native) Compile(ctx context.Context, file string, includePaths []string) ([]byte, error) {
	out, err := n.expand(ctx, file, includePaths, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if !n.minify {
		return out, nil
	}
	min, err := n.m.Bytes("text/css", out)
	if err != nil {
		return nil, fmt.Errorf("styles: minify %s: %w", file, err)
	}
	return min, nil
}

// Close implements Compiler.
func (n *Native) Close() error { return nil }

func (n *Native) expand(ctx context.Context, file string, includePaths []string, stack map[string]bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	if stack[abs] {
		return nil, fmt.Errorf("styles: import cycle through %s", file)
	}
	stack[abs] = true
	defer delete(stack, abs)

	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var firstErr error
	out := importRe.ReplaceAllFunc(src, func(stmt []byte) []byte {
		if firstErr != nil {
			return stmt
		}
		target := string(importRe.FindSubmatch(stmt)[1])
		if isRemote(target) {
			return stmt
		}
		resolved, err := resolveImport(target, filepath.Dir(file), includePaths)
		if err != nil {
			firstErr = fmt.Errorf("styles: %s: %w", file, err)
			return stmt
		}
		body, err := n.expand(ctx, resolved, includePaths, stack)
		if err != nil {
			firstErr = err
			return stmt
		}
		return body
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func isRemote(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "//")
}

// resolveImport finds target relative to dir, then in each include path.
func resolveImport(target, dir string, includePaths []string) (string, error) {
	for _, base := range append([]string{dir}, includePaths...) {
		for _, cand := range candidates(target) {
			p := filepath.Join(base, cand)
			info, err := os.Stat(p)
			if err == nil && !info.IsDir() {
				return p, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("cannot resolve import %q: %w", target, fs.ErrNotExist)
}

func candidates(target string) []string {
	dir, name := filepath.Split(filepath.FromSlash(target))
	if filepath.Ext(name) != "" {
		return []string{filepath.Join(dir, name), filepath.Join(dir, "_"+name)}
	}
	var out []string
	for _, ext := range []string{".scss", ".css", ".sass"} {
		out = append(out, filepath.Join(dir, name+ext), filepath.Join(dir, "_"+name+ext))
	}
	return out
}
