package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/download"
)

func TestValidateAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "loopback with port", addr: "127.0.0.1:8750"},
		{name: "port only", addr: ":8080"},
		{name: "localhost", addr: "localhost:9000"},
		{name: "auto-assign port", addr: "127.0.0.1:0"},
		{name: "missing port", addr: "127.0.0.1", wantErr: true},
		{name: "non-numeric port", addr: "127.0.0.1:http", wantErr: true},
		{name: "port out of range", addr: "127.0.0.1:70000", wantErr: true},
		{name: "empty", addr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateAddr(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArchiveName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "chat.zip", archiveName("/inbox/chat.html", ""))
	assert.Equal(t, "notes.zip", archiveName("notes.htm", ""))
	assert.Equal(t, "My_Chat.zip", archiveName("/inbox/export.html", "My_Chat"))
}

func TestExpandInputs_DirectoryYieldsExports(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a.html", "b.HTM", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("<html></html>"), 0o640))
	}

	got, err := expandInputs([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.html"),
		filepath.Join(dir, "b.HTM"),
	}, got)
}

func TestSandboxTimeout(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Sandbox.TimeoutMs = 1500
	assert.Equal(t, 1500*time.Millisecond, sandboxTimeout(cfg))
}

func TestExtractOne_WritesArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "chat.html")
	require.NoError(t, os.WriteFile(input, []byte(`<html><body>
<div data-artifact-id="a1">
  <div class="artifact-title">Script</div>
  <pre><code class="language-python">print("hi")</code></pre>
</div>
</body></html>`), 0o640))

	cfg, err := config.LoadDir(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	p, err := newPipeline(t.Context(), cfg, logger)
	require.NoError(t, err)

	outDir := t.TempDir()
	trigger, err := download.NewDir(outDir, logger)
	require.NoError(t, err)

	require.NoError(t, extractOne(t.Context(), p, trigger, cfg, input, ""))

	raw, err := os.ReadFile(filepath.Join(outDir, "chat.zip"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestExtractOne_NoArtifactsIsNotAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(input, []byte("<html><body><p>hi</p></body></html>"), 0o640))

	cfg, err := config.LoadDir(t.TempDir())
	require.NoError(t, err)

	p, err := newPipeline(t.Context(), cfg, slog.Default())
	require.NoError(t, err)

	trigger, err := download.NewDir(t.TempDir(), slog.Default())
	require.NoError(t, err)

	assert.NoError(t, extractOne(t.Context(), p, trigger, cfg, input, ""))
}

func TestProcessExport_MarksFileDone(t *testing.T) {
	t.Parallel()

	inbox := t.TempDir()
	input := filepath.Join(inbox, "chat.html")
	require.NoError(t, os.WriteFile(input, []byte(`<html><body>
<div data-artifact-id="a1">
  <pre><code class="language-go">package main</code></pre>
</div>
</body></html>`), 0o640))

	cfg, err := config.LoadDir(t.TempDir())
	require.NoError(t, err)

	logger := slog.Default()
	p, err := newPipeline(t.Context(), cfg, logger)
	require.NoError(t, err)

	trigger, err := download.NewDir(t.TempDir(), logger)
	require.NoError(t, err)

	processExport(context.Background(), p, trigger, cfg, input, logger)

	_, err = os.Stat(input + ".done")
	assert.NoError(t, err)
}
