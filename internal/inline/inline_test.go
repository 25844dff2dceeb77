package inline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func site(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"styles/main.css":    []byte("body{background:url(../images/bg.png)}"),
		"images/bg.png":      pngPixel,
		"images/logo.png":    pngPixel,
		"scripts/app.js":     []byte("console.log('hi');"),
		"guides/placeholder": nil,
	}
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return dir
}

const page = `<!DOCTYPE html><html><head>
<link rel="stylesheet" href="../styles/main.css" media="screen">
<link rel="stylesheet" href="https://cdn.example.com/x.css">
<script src="/scripts/app.js"></script>
</head><body>
<img src="../images/logo.png" alt="logo">
<img src="https://example.com/remote.png">
<a href="#top">top</a>
</body></html>`

func TestInline_EmbedsLocalAssets(t *testing.T) {
	root := site(t)
	out, err := New(root, DefaultOptions()).Inline([]byte(page), filepath.Join(root, "guides"))
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `<style media="screen">`)
	assert.Contains(t, s, `url("data:image/png;base64,`)
	assert.Contains(t, s, "console.log('hi');")
	assert.Contains(t, s, `src="data:image/png;base64,`)
	assert.NotContains(t, s, "../styles/main.css")
	assert.NotContains(t, s, "app.js")

	// Remote references are left alone.
	assert.Contains(t, s, "https://cdn.example.com/x.css")
	assert.Contains(t, s, "https://example.com/remote.png")

	refs, err := References(out)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestInline_MissingAsset(t *testing.T) {
	root := t.TempDir()
	_, err := New(root, DefaultOptions()).Inline([]byte(`<link rel="stylesheet" href="gone.css">`), root)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInline_OptionsDisableKinds(t *testing.T) {
	root := site(t)
	out, err := New(root, Options{Styles: true}).Inline([]byte(page), filepath.Join(root, "guides"))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<style")
	assert.Contains(t, s, "url(../images/bg.png)")
	assert.Contains(t, s, `src="../images/logo.png"`)
	assert.Contains(t, s, `src="/scripts/app.js"`)
}

func TestReferences_ReportsLocal(t *testing.T) {
	refs, err := References([]byte(page))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"../styles/main.css", "/scripts/app.js", "../images/logo.png"}, refs)
}

func TestIsLocal(t *testing.T) {
	for ref, want := range map[string]bool{
		"styles/a.css":               true,
		"/abs/a.css":                 true,
		"../up.png?v=1":              true,
		"":                           false,
		"#frag":                      false,
		"//cdn.example.com/a":        false,
		"https://example.com/a":      false,
		"data:image/png;base64,AAAA": false,
	} {
		assert.Equal(t, want, isLocal(ref), ref)
	}
	assert.True(t, strings.HasPrefix(contentType("x.css", []byte("body{}")), "text/css"))
}
