package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/siteservice"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/testutil"
)

func testConfig(t *testing.T) (*Config, testutil.Site) {
	t.Helper()
	s := testutil.TestSite(t)
	cfg := NewDefaultConfig()
	cfg.Site.Title = "Docs"
	cfg.Site.Source = s.Source
	cfg.Site.Output = s.Output
	cfg.Site.WorkDir = s.Work
	cfg.Site.Template = s.Template
	cfg.Site.Partials = ""
	cfg.Cache.Path = filepath.Join(s.Dir, ".quire", "cache.db")
	cfg.Content = s.Content
	cfg.Servers = map[string]ServerConfig{
		"prod": {BaseURL: "https://docs.example.com", InstallDir: filepath.Join(s.Dir, "www")},
	}
	require.NoError(t, cfg.Validate())
	return cfg, s
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRun_Build(t *testing.T) {
	cfg, s := testConfig(t)

	require.NoError(t, Run(context.Background(), "build", WithConfig(cfg), quiet()))
	assert.FileExists(t, filepath.Join(s.Output, "index.html"))
	assert.FileExists(t, filepath.Join(s.Output, "guides", "intro.html"))
	assert.FileExists(t, filepath.Join(s.Dir, ".quire", "cache.db"))
}

func TestRun_CategoryTarget(t *testing.T) {
	cfg, s := testConfig(t)

	require.NoError(t, Run(context.Background(), filepath.Join(s.Output, "guides"), WithConfig(cfg), quiet()))
	assert.FileExists(t, filepath.Join(s.Output, "guides", "intro.html"))
	assert.NoFileExists(t, filepath.Join(s.Output, "index.html"))
}

func TestRun_InstallUsesEnvironment(t *testing.T) {
	cfg, s := testConfig(t)

	err := Run(context.Background(), "install", WithConfig(cfg), quiet())
	require.ErrorIs(t, err, apperr.ErrInvalidConfig)

	require.NoError(t, Run(context.Background(), "install", WithConfig(cfg), WithEnvironment("prod"), quiet()))
	assert.FileExists(t, filepath.Join(s.Dir, "www", "guides", "advanced.html"))
}

func TestRun_UnknownTarget(t *testing.T) {
	cfg, _ := testConfig(t)
	err := Run(context.Background(), "deploy", WithConfig(cfg), quiet())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRun_RequiresConfig(t *testing.T) {
	require.Error(t, Run(context.Background(), "build", quiet()))
}

func TestRun_Clean(t *testing.T) {
	cfg, s := testConfig(t)
	require.NoError(t, Run(context.Background(), "build", WithConfig(cfg), quiet()))
	require.NoError(t, Run(context.Background(), "clean", WithConfig(cfg), quiet()))
	_, err := os.Stat(s.Output)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTargets(t *testing.T) {
	cfg, s := testConfig(t)
	names, err := Targets(context.Background(), WithConfig(cfg), quiet())
	require.NoError(t, err)
	assert.Subset(t, names, []string{"build", "clean", "install", s.Output, filepath.Join(s.Output, "guides")})
}

func TestNewLogger_Format(t *testing.T) {
	_, isText := NewLogger(io.Discard, ApplicationConfig{LogFormat: LogFormatText}).Handler().(*slog.TextHandler)
	assert.True(t, isText)
	_, isJSON := NewLogger(io.Discard, ApplicationConfig{LogFormat: LogFormatJSON}).Handler().(*slog.JSONHandler)
	assert.True(t, isJSON)
}

func TestServeRouter_EventsRequireToken(t *testing.T) {
	cfg, s := testConfig(t)
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "tok"}

	store, err := storage.NewFS(s.Source, false)
	require.NoError(t, err)
	svc := siteservice.NewService(models.Category{}, store,
		siteservice.BuilderFunc(func(context.Context) (models.Category, error) { return models.Category{}, nil }))
	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r := newServeRouter(cfg, svc, events, prom.NewRegistry())

	get := func(target, token string) int {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, get("/events", ""))
	assert.Equal(t, http.StatusUnauthorized, get("/api/events", ""))
	assert.Equal(t, http.StatusOK, get("/events", "tok"))
	assert.Equal(t, http.StatusOK, get("/events?access_token=tok", ""))
	assert.Equal(t, http.StatusOK, get("/health/live", ""))
}
