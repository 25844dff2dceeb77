package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/site"
	"github.com/starford/quire/internal/siteservice"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/testutil"
)

func testServer(t *testing.T, buildErr error) *Server {
	t.Helper()

	s := testutil.TestSite(t)
	store, err := storage.NewFS(s.Source, false)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := site.Build(site.Roots{Source: s.Source, Output: s.Output}, s.Content, store)
	if err != nil {
		t.Fatal(err)
	}
	svc := siteservice.NewService(tree, store, siteservice.BuilderFunc(func(context.Context) (models.Category, error) {
		return tree, buildErr
	}))
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_site_tree":
		result, err = srv.getSiteTree(ctx, req)
	case "list_articles":
		result, err = srv.listArticles(ctx, req)
	case "read_article":
		result, err = srv.readArticle(ctx, req)
	case "build_site":
		result, err = srv.buildSite(ctx, req)
	case "get_article_contract":
		result, err = srv.getArticleContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetSiteTree(t *testing.T) {
	srv := testServer(t, nil)

	r := callTool(t, srv, "get_site_tree", nil)
	var meta models.CategoryMeta
	if err := json.Unmarshal([]byte(resultText(r)), &meta); err != nil {
		t.Fatalf("tree is not JSON: %v", err)
	}
	if meta.Name != "Docs" || len(meta.Categories) != 1 {
		t.Errorf("unexpected tree: %+v", meta)
	}
}

func TestListArticles(t *testing.T) {
	srv := testServer(t, nil)

	text := resultText(callTool(t, srv, "list_articles", map[string]interface{}{}))
	if n := len(strings.Split(text, "\n")); n != 3 {
		t.Errorf("lines = %d, want 3: %q", n, text)
	}
	if !strings.Contains(text, "guides/advanced\tAdvanced\t(wip)") {
		t.Errorf("wip marker missing: %q", text)
	}

	text = resultText(callTool(t, srv, "list_articles", map[string]interface{}{"category": "nope"}))
	if text != "no articles found" {
		t.Errorf("filtered list = %q", text)
	}
}

func TestReadArticle(t *testing.T) {
	srv := testServer(t, nil)

	r := callTool(t, srv, "read_article", map[string]interface{}{"key": "guides/intro.md"})
	if r.IsError {
		t.Fatalf("read failed: %s", resultText(r))
	}
	if text := resultText(r); text != "# Intro\n\nFirst steps.\n" {
		t.Errorf("source = %q", text)
	}
}

func TestReadArticleMissing(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "read_article", map[string]interface{}{"key": "nope"})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
}

func TestBuildSite(t *testing.T) {
	srv := testServer(t, nil)
	r := callTool(t, srv, "build_site", nil)
	if r.IsError {
		t.Fatalf("build failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"ok": true`) {
		t.Errorf("result = %q", resultText(r))
	}

	srv = testServer(t, errors.New("boom"))
	r = callTool(t, srv, "build_site", nil)
	if !r.IsError || !strings.Contains(resultText(r), "boom") {
		t.Errorf("failed build result = %q", resultText(r))
	}
}

func TestArticleContract(t *testing.T) {
	srv := testServer(t, nil)
	if text := resultText(callTool(t, srv, "get_article_contract", nil)); !strings.Contains(text, "front matter") {
		t.Errorf("contract = %q", text)
	}
}
