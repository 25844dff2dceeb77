package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// articleKey extracts the article key from the URL (everything after
// /api/articles/). Encoded slashes and a trailing ".md" or ".html" are accepted.
func articleKey(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	for _, ext := range []string{".md", ".html"} {
		decoded = strings.TrimSuffix(decoded, ext)
	}
	return decoded
}

// GetSite handles GET /api/site.
func (h *Handler) GetSite(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Tree())
}

// ListArticles handles GET /api/articles. The optional "category" and
// "wip" query parameters filter the result.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	wip := q.Get("wip")

	items := make([]ArticleSummary, 0)
	for _, a := range h.svc.Articles() {
		if category != "" && a.Category != category {
			continue
		}
		if wip != "" && (wip == "true") != a.WIP {
			continue
		}
		items = append(items, a)
	}
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Total: len(items)})
}

// GetArticle handles GET /api/articles/*.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	key := articleKey(r)
	if key == "" {
		writeError(w, http.StatusBadRequest, "article key is required")
		return
	}
	a, err := h.svc.Article(r.Context(), key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("api: get article failed", slog.String("article", key), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetBuild handles GET /api/build.
func (h *Handler) GetBuild(w http.ResponseWriter, _ *http.Request) {
	resp := BuildStatusResponse{Building: h.svc.Building()}
	if last, ok := h.svc.LastBuild(); ok {
		resp.Last = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartBuild handles POST /api/build. The build runs to completion even if
// the client disconnects.
func (h *Handler) StartBuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Build(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, apperr.ErrBuildInProgress):
		writeError(w, http.StatusConflict, "build already in progress")
	case err != nil:
		slog.Error("api: build failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
