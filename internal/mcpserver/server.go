// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the site tree and builds over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/siteservice"
)

const contractURI = "quire://article-format"

// Server wraps the MCP server with site tools.
type Server struct {
	mcp *server.MCPServer
	svc *siteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *siteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_site_tree",
		mcp.WithDescription("Return the category tree with article titles and URLs as JSON."),
	), s.getSiteTree)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List articles, optionally restricted to one category."),
		mcp.WithString("category", mcp.Description("Optional category name")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read the Markdown source of an article."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Article key: category path and name, e.g. guides/intro")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("build_site",
		mcp.WithDescription("Run the build target and report the result."),
	), s.buildSite)

	s.mcp.AddTool(mcp.NewTool("get_article_contract",
		mcp.WithDescription("Return the article source format. Read it before editing article files."),
	), s.getArticleContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Article Format",
			mcp.WithResourceDescription("How article Markdown sources are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSiteTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Tree())
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")

	var lines []string
	for _, a := range s.svc.Articles() {
		if category != "" && a.Category != category {
			continue
		}
		line := a.Key + "\t" + a.Title
		if a.WIP {
			line += "\t(wip)"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no articles found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key = strings.TrimSuffix(key, ".md")
	a, err := s.svc.Article(ctx, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", key)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(a.Source), nil
}

func (s *Server) buildSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Build(ctx)
	if errors.Is(err, apperr.ErrBuildInProgress) {
		return mcp.NewToolResultError("build already in progress"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed after %dms: %s", res.DurationMS, err)), nil
	}
	return jsonResult(res)
}

func (s *Server) getArticleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
