package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/artivault/api"
	"github.com/koopa0/artivault/internal/archive"
	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/extract"
	"github.com/koopa0/artivault/internal/log"
	"github.com/koopa0/artivault/internal/pipeline"
	"github.com/koopa0/artivault/internal/preview"
	"github.com/koopa0/artivault/internal/sandbox"
)

// sampleExport is a minimal conversation export with one code
// artifact.
const sampleExport = `<html><body>
<div data-artifact-id="a1">
  <div class="artifact-title">Hello Script</div>
  <pre><code class="language-javascript">console.log("hi");</code></pre>
</div>
</body></html>`

// envelope mirrors the wire format for decoding in assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type downloadView struct {
	Archive []byte   `json:"archive"`
	Path    string   `json:"path"`
	Count   int      `json:"count"`
	Files   []string `json:"files"`
	Cached  int      `json:"cached"`
}

func newTestServer(t *testing.T, store *artifact.Store) *api.Server {
	t.Helper()

	logger := log.NewNop()
	cfg, err := config.LoadDir(t.TempDir())
	require.NoError(t, err)

	extractor := extract.NewExtractor(cfg.Selectors, logger)
	builder := archive.NewBuilder(logger)
	p, err := pipeline.New(extractor, builder, nil, logger)
	require.NoError(t, err)

	srv, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Pipeline:    p,
		Runner:      sandbox.NewRunner(5*time.Second, []string{"sh"}, logger),
		Renderer:    preview.NewRenderer(),
		Store:       store,
		Settings:    api.NewSettings(*cfg, ""),
		CORSOrigins: []string{"https://example.com"},
	})
	require.NoError(t, err)
	return srv
}

func postJSON(t *testing.T, h http.Handler, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestDownload_PackagesExtractedArtifacts(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/download", map[string]any{
		"html": sampleExport,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success, env.Error)

	var data downloadView
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Count)
	assert.Equal(t, []string{"Hello_Script.js"}, data.Files)
	assert.NotEmpty(t, data.Archive)
}

func TestDownload_MissingHTML(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/download", map[string]any{
		"html": "   ",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid_request", env.Code)
}

func TestDownload_NoArtifactsIsNotAServerError(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/download", map[string]any{
		"html": "<html><body><p>just chatting</p></body></html>",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "no_artifacts", env.Code)
}

func TestDownload_CachedFragmentsJoinTheBatch(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	h := newTestServer(t, store).Handler()

	// First call caches without packaging.
	rec, env := postJSON(t, h, "/api/artifacts/download", map[string]any{
		"html":         sampleExport,
		"conversation": "conv-1",
		"cache_only":   true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	// Second call packages the cached fragment together with a new one.
	second := `<html><body>
<div data-artifact-id="a2">
  <div class="artifact-title">Notes</div>
  <p>Remember the thing.</p>
</div>
</body></html>`
	rec, env = postJSON(t, h, "/api/artifacts/download", map[string]any{
		"html":         second,
		"conversation": "conv-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success, env.Error)

	var data downloadView
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Count)

	// The cache was cleared after shipping.
	left, err := store.ListByConversation(t.Context(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDownloadSingle(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/download-single", map[string]any{
		"artifact": map[string]any{
			"title":    "Main",
			"type":     "code",
			"language": "go",
			"content":  "package main",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success, env.Error)

	var data downloadView
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Count)
	assert.Equal(t, []string{"Main.go"}, data.Files)
}

func TestRun_ExecutesCode(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/run", map[string]any{
		"code":     "echo hello",
		"language": "sh",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success, env.Error)

	var out struct {
		Stdout string `json:"output"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "hello\n", out.Stdout)
}

func TestRun_DisallowedLanguage(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/run", map[string]any{
		"code":     "print('no')",
		"language": "python",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestPreview_RendersMarkdown(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec, env := postJSON(t, h, "/api/artifacts/preview", map[string]any{
		"artifact": map[string]any{
			"title":   "Notes",
			"type":    "markdown",
			"content": "# Heading",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success, env.Error)

	var data struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data.HTML, "<h1")
}

func TestSettings_GetAndUpdate(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)

	var cfg config.Config
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.Equal(t, config.DefaultAddr, cfg.Addr)

	// Update: booleans come from the patch, so resend the toggles.
	cfg.Naming.SanitizeMode = "strip"
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(raw))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.Equal(t, "strip", cfg.Naming.SanitizeMode)
}

func TestSettings_InvalidPatchRejected(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	rec, env := putJSON(t, h, "/api/settings", map[string]any{
		"naming": map[string]any{
			"sanitize_mode":       "bogus",
			"max_filename_length": 100,
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid_request", env.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, openTestStore(t)).Handler()

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/artifacts/download", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_UnknownOriginGetsNoHeader(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func putJSON(t *testing.T, h http.Handler, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func openTestStore(t *testing.T) *artifact.Store {
	t.Helper()

	store, err := artifact.OpenStore(":memory:", log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
