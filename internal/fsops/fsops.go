package fsops

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Copy copies every file matching pattern into dest, preserving each file's
// location relative to the pattern base. Missing matches copy nothing.
func Copy(ctx context.Context, pattern, dest string) error {
	matches, err := Expand(pattern, false)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(m.Path, filepath.Join(dest, m.Rel)); err != nil {
			return err
		}
	}
	return nil
}

// Remove force-deletes every path matching pattern. Paths that are already
// gone are not an error, so running it twice is safe.
func Remove(ctx context.Context, pattern string) error {
	if !HasMeta(pattern) {
		return os.RemoveAll(filepath.Clean(pattern))
	}
	matches, err := Expand(pattern, true)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(m.Path); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
