// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.artivault/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Naming: filename resolution options (timestamps, sanitize mode,
//     length limit, flat vs grouped layout)
//   - Selectors: CSS selectors locating artifacts in conversation
//     exports (re-tuned per host page version, see validation.go)
//   - Sandbox: code execution limits
//   - Assist: optional model-backed title suggestion
//   - Server: HTTP listen address, CORS, inbox/output directories
//
// Config is an immutable value: updates build a new Config via Merge
// and persist it with Save, never by mutating a shared object.
//
// Error Handling: sentinel errors for Go-idiomatic checking with
// errors.Is(), wrapped with context via fmt.Errorf("%w: ...").
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/koopa0/artivault/internal/extract"
	"github.com/koopa0/artivault/internal/naming"
)

const (
	// DefaultAddr is the default HTTP listen address.
	DefaultAddr = "127.0.0.1:8750"

	// DefaultSandboxTimeoutMs is the wall-clock limit for executed code.
	DefaultSandboxTimeoutMs = 5000

	// configName is the config file basename (config.yaml).
	configName = "config"
)

// NamingConfig holds filename resolution options.
type NamingConfig struct {
	IncludeTimestamp  bool   `mapstructure:"include_timestamp" json:"include_timestamp"`
	SanitizeMode      string `mapstructure:"sanitize_mode" json:"sanitize_mode"` // "replace" or "strip"
	MaxFilenameLength int    `mapstructure:"max_filename_length" json:"max_filename_length"`
	FlatStructure     bool   `mapstructure:"flat_structure" json:"flat_structure"`
}

// SandboxConfig holds code execution limits.
type SandboxConfig struct {
	TimeoutMs        int      `mapstructure:"timeout_ms" json:"timeout_ms"`
	AllowedLanguages []string `mapstructure:"allowed_languages" json:"allowed_languages"`
}

// AssistConfig controls model-backed title suggestion for untitled
// artifacts. Disabled by default; requires GEMINI_API_KEY when on.
type AssistConfig struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	ModelName string `mapstructure:"model_name" json:"model_name"`
}

// Config stores application configuration.
type Config struct {
	Naming    NamingConfig      `mapstructure:"naming" json:"naming"`
	Stitch    bool              `mapstructure:"stitch" json:"stitch"`
	Selectors extract.Selectors `mapstructure:"selectors" json:"selectors"`
	Sandbox   SandboxConfig     `mapstructure:"sandbox" json:"sandbox"`
	Assist    AssistConfig      `mapstructure:"assist" json:"assist"`

	// Server configuration
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Directories
	InboxDir  string `mapstructure:"inbox_dir" json:"inbox_dir"`  // watched for new conversation exports
	OutputDir string `mapstructure:"output_dir" json:"output_dir"` // download target
	CachePath string `mapstructure:"cache_path" json:"cache_path"` // artifact cache database
}

// Dir returns the configuration directory (~/.artivault), creating it
// if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".artivault")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load loads configuration from the default directory.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadDir(dir)
}

// LoadDir loads configuration rooted at dir. Split out from Load so
// tests can run against a temporary directory.
func LoadDir(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v, dir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"dir", dir,
			"config_name", configName+".yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail fast on invalid values.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, dir string) {
	sel := extract.DefaultSelectors()

	v.SetDefault("naming.include_timestamp", false)
	v.SetDefault("naming.sanitize_mode", naming.ModeReplace)
	v.SetDefault("naming.max_filename_length", naming.DefaultMaxFilenameLength)
	v.SetDefault("naming.flat_structure", true)

	v.SetDefault("stitch", true)

	v.SetDefault("selectors.container", sel.Container)
	v.SetDefault("selectors.title", sel.Title)
	v.SetDefault("selectors.code_block", sel.CodeBlock)
	v.SetDefault("selectors.html_marker", sel.HTMLMarker)
	v.SetDefault("selectors.react_marker", sel.ReactMarker)
	v.SetDefault("selectors.mermaid_marker", sel.MermaidMarker)

	v.SetDefault("sandbox.timeout_ms", DefaultSandboxTimeoutMs)
	v.SetDefault("sandbox.allowed_languages", []string{"go", "python", "javascript", "sh"})

	v.SetDefault("assist.enabled", false)
	v.SetDefault("assist.model_name", "gemini-2.5-flash")

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("cors_origins", []string{})

	v.SetDefault("inbox_dir", filepath.Join(dir, "inbox"))
	v.SetDefault("output_dir", filepath.Join(dir, "downloads"))
	v.SetDefault("cache_path", filepath.Join(dir, "artifacts.db"))
}

// bindEnvVariables binds runtime override variables explicitly.
// GEMINI_API_KEY is read directly by the genai client, not via viper.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a failure here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("addr", "ARTIVAULT_ADDR")
	mustBind("cors_origins", "ARTIVAULT_CORS_ORIGINS")
	mustBind("inbox_dir", "ARTIVAULT_INBOX_DIR")
	mustBind("output_dir", "ARTIVAULT_OUTPUT_DIR")
	mustBind("cache_path", "ARTIVAULT_CACHE_PATH")
	mustBind("stitch", "ARTIVAULT_STITCH")
	mustBind("sandbox.timeout_ms", "ARTIVAULT_SANDBOX_TIMEOUT_MS")
	mustBind("assist.enabled", "ARTIVAULT_ASSIST")
}

// Save persists cfg as the whole configuration value to dir. The file
// is rewritten atomically from the value; partial in-place updates are
// deliberately unsupported.
func Save(cfg *Config, dir string) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("naming.include_timestamp", cfg.Naming.IncludeTimestamp)
	v.Set("naming.sanitize_mode", cfg.Naming.SanitizeMode)
	v.Set("naming.max_filename_length", cfg.Naming.MaxFilenameLength)
	v.Set("naming.flat_structure", cfg.Naming.FlatStructure)
	v.Set("stitch", cfg.Stitch)
	v.Set("selectors.container", cfg.Selectors.Container)
	v.Set("selectors.title", cfg.Selectors.Title)
	v.Set("selectors.code_block", cfg.Selectors.CodeBlock)
	v.Set("selectors.html_marker", cfg.Selectors.HTMLMarker)
	v.Set("selectors.react_marker", cfg.Selectors.ReactMarker)
	v.Set("selectors.mermaid_marker", cfg.Selectors.MermaidMarker)
	v.Set("sandbox.timeout_ms", cfg.Sandbox.TimeoutMs)
	v.Set("sandbox.allowed_languages", cfg.Sandbox.AllowedLanguages)
	v.Set("assist.enabled", cfg.Assist.Enabled)
	v.Set("assist.model_name", cfg.Assist.ModelName)
	v.Set("addr", cfg.Addr)
	v.Set("cors_origins", cfg.CORSOrigins)
	v.Set("inbox_dir", cfg.InboxDir)
	v.Set("output_dir", cfg.OutputDir)
	v.Set("cache_path", cfg.CachePath)

	path := filepath.Join(dir, configName+".yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// NamingOptions converts the configuration into resolver options for
// one batch. conversation names the optional grouping folder.
func (c *Config) NamingOptions(conversation string) naming.Options {
	return naming.Options{
		IncludeTimestamp:  c.Naming.IncludeTimestamp,
		SanitizeMode:      c.Naming.SanitizeMode,
		MaxFilenameLength: c.Naming.MaxFilenameLength,
		FlatStructure:     c.Naming.FlatStructure,
		Conversation:      conversation,
	}
}
