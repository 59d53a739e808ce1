package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/extract"
	"github.com/koopa0/artivault/internal/naming"
)

func TestLoadDir_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)

	assert.False(t, cfg.Naming.IncludeTimestamp)
	assert.Equal(t, naming.ModeReplace, cfg.Naming.SanitizeMode)
	assert.Equal(t, naming.DefaultMaxFilenameLength, cfg.Naming.MaxFilenameLength)
	assert.True(t, cfg.Naming.FlatStructure)
	assert.True(t, cfg.Stitch)
	assert.NotEmpty(t, cfg.Selectors.Container)
	assert.Equal(t, config.DefaultSandboxTimeoutMs, cfg.Sandbox.TimeoutMs)
	assert.False(t, cfg.Assist.Enabled)
	assert.Equal(t, config.DefaultAddr, cfg.Addr)
	assert.Equal(t, filepath.Join(dir, "inbox"), cfg.InboxDir)
	assert.Equal(t, filepath.Join(dir, "artifacts.db"), cfg.CachePath)
}

func TestLoadDir_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
naming:
  include_timestamp: true
  sanitize_mode: strip
stitch: false
addr: "127.0.0.1:9999"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)

	assert.True(t, cfg.Naming.IncludeTimestamp)
	assert.Equal(t, naming.ModeStrip, cfg.Naming.SanitizeMode)
	assert.False(t, cfg.Stitch)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	// Untouched fields keep their defaults.
	assert.Equal(t, naming.DefaultMaxFilenameLength, cfg.Naming.MaxFilenameLength)
}

func TestLoadDir_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`addr: "127.0.0.1:9999"`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))
	t.Setenv("ARTIVAULT_ADDR", "0.0.0.0:8000")

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr)
}

func TestLoadDir_InvalidValueFailsFast(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
naming:
  sanitize_mode: shred
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	_, err := config.LoadDir(dir)
	assert.ErrorIs(t, err, config.ErrInvalidSanitizeMode)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)

	updated := cfg.Merge(config.Config{
		Naming: config.NamingConfig{IncludeTimestamp: true, FlatStructure: true},
		Stitch: true,
		Addr:   "127.0.0.1:7777",
	})
	require.NoError(t, config.Save(&updated, dir))

	reloaded, err := config.LoadDir(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.Naming.IncludeTimestamp)
	assert.Equal(t, "127.0.0.1:7777", reloaded.Addr)

	// Saving never mutated the original value.
	assert.False(t, cfg.Naming.IncludeTimestamp)
}

func TestSave_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)
	bad := *cfg
	bad.Sandbox.TimeoutMs = -1

	assert.ErrorIs(t, config.Save(&bad, dir), config.ErrInvalidSandboxTimeout)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		return config.Config{
			Naming: config.NamingConfig{
				SanitizeMode:      naming.ModeReplace,
				MaxFilenameLength: 255,
			},
			Sandbox:   config.SandboxConfig{TimeoutMs: 5000},
			Selectors: extract.Selectors{Container: "div.artifact"},
			Addr:      "127.0.0.1:8750",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"valid", func(*config.Config) {}, nil},
		{"bad sanitize mode", func(c *config.Config) { c.Naming.SanitizeMode = "x" }, config.ErrInvalidSanitizeMode},
		{"filename length too small", func(c *config.Config) { c.Naming.MaxFilenameLength = 3 }, config.ErrInvalidMaxFilenameLength},
		{"filename length too large", func(c *config.Config) { c.Naming.MaxFilenameLength = 300 }, config.ErrInvalidMaxFilenameLength},
		{"zero timeout", func(c *config.Config) { c.Sandbox.TimeoutMs = 0 }, config.ErrInvalidSandboxTimeout},
		{"huge timeout", func(c *config.Config) { c.Sandbox.TimeoutMs = 120000 }, config.ErrInvalidSandboxTimeout},
		{"no container selector", func(c *config.Config) { c.Selectors.Container = "" }, config.ErrMissingSelector},
		{"no addr", func(c *config.Config) { c.Addr = "" }, config.ErrInvalidAddr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNamingOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Naming: config.NamingConfig{
			IncludeTimestamp:  true,
			SanitizeMode:      naming.ModeStrip,
			MaxFilenameLength: 100,
			FlatStructure:     false,
		},
	}

	opts := cfg.NamingOptions("Research Chat")
	assert.True(t, opts.IncludeTimestamp)
	assert.Equal(t, naming.ModeStrip, opts.SanitizeMode)
	assert.Equal(t, 100, opts.MaxFilenameLength)
	assert.False(t, opts.FlatStructure)
	assert.Equal(t, "Research Chat", opts.Conversation)
}
