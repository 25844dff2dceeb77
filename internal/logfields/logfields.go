// Package logfields keeps slog attribute names consistent across packages.
package logfields

import "log/slog"

const (
	KeyTask       = "task"
	KeyTarget     = "target"
	KeyCategory   = "category"
	KeyArticle    = "article"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func Category(path string) slog.Attr  { return slog.String(KeyCategory, path) }
func Article(name string) slog.Attr   { return slog.String(KeyArticle, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
