// Package fsops provides the glob-driven copy and delete primitives used by build tasks.
package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

const metaChars = "*?[{"

// HasMeta reports whether pattern contains glob syntax.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, metaChars)
}

// Base returns the longest leading directory of pattern that contains no glob
// syntax. Matches are copied relative to it.
func Base(pattern string) string {
	pattern = filepath.Clean(pattern)
	if !HasMeta(pattern) {
		return pattern
	}
	segs := strings.Split(filepath.ToSlash(pattern), "/")
	var static []string
	for _, s := range segs {
		if strings.ContainsAny(s, metaChars) {
			break
		}
		static = append(static, s)
	}
	if len(static) == 0 {
		return "."
	}
	base := strings.Join(static, "/")
	if base == "" {
		// Pattern was rooted ("/..."), keep the separator.
		return string(filepath.Separator)
	}
	return filepath.FromSlash(base)
}

// Match is one path selected by Expand.
type Match struct {
	Path  string // path as seen on disk
	Rel   string // path relative to the pattern base
	IsDir bool
}

// Expand walks the static base of pattern and returns every entry matching it,
// sorted by path. A base that does not exist yields no matches and no error.
// withDirs controls whether directories are returned alongside files.
func Expand(pattern string, withDirs bool) ([]Match, error) {
	pattern = filepath.Clean(pattern)

	if !HasMeta(pattern) {
		info, err := os.Stat(pattern)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if info.IsDir() && !withDirs {
			return expandDir(pattern)
		}
		return []Match{{Path: pattern, Rel: filepath.Base(pattern), IsDir: info.IsDir()}}, nil
	}

	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil, err
	}

	base := Base(pattern)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out []Match
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == base {
			return nil
		}
		if d.IsDir() && !withDirs {
			return nil
		}
		if !g.Match(filepath.ToSlash(p)) {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		out = append(out, Match{Path: p, Rel: rel, IsDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// expandDir lists every file under dir, used when a literal directory is copied.
func expandDir(dir string) ([]Match, error) {
	var out []Match
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, Match{Path: p, Rel: rel})
		return nil
	})
	return out, err
}
