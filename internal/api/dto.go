package api

import "github.com/starford/quire/internal/siteservice"

// ArticleSummary is a lightweight item in a list response (aliased from the domain layer).
type ArticleSummary = siteservice.ArticleSummary

// ArticleDetail is the full article response type (aliased from the domain layer).
type ArticleDetail = siteservice.ArticleDetail

// BuildResult describes a build run (aliased from the domain layer).
type BuildResult = siteservice.Result

// ArticleListResponse wraps article listings.
type ArticleListResponse struct {
	Articles []ArticleSummary `json:"articles"`
	Total    int              `json:"total"`
}

// BuildStatusResponse is returned by GET /build.
type BuildStatusResponse struct {
	Building bool         `json:"building"`
	Last     *BuildResult `json:"last,omitempty"`
}
