package config

import (
	"errors"
	"fmt"

	"github.com/koopa0/artivault/internal/naming"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidSanitizeMode indicates an unknown sanitize mode.
	ErrInvalidSanitizeMode = errors.New("invalid sanitize mode")

	// ErrInvalidMaxFilenameLength indicates the filename length limit
	// is out of range.
	ErrInvalidMaxFilenameLength = errors.New("invalid max filename length")

	// ErrInvalidSandboxTimeout indicates the sandbox timeout is out of
	// range.
	ErrInvalidSandboxTimeout = errors.New("invalid sandbox timeout")

	// ErrMissingSelector indicates a required selector is empty.
	ErrMissingSelector = errors.New("missing selector")

	// ErrInvalidAddr indicates the listen address is empty.
	ErrInvalidAddr = errors.New("invalid listen address")
)

// Filename length bounds. The lower bound leaves room for at least one
// base character plus a dotted extension.
const (
	MinFilenameLength = 8
	MaxFilenameLength = 255
)

// MaxSandboxTimeoutMs caps code execution at one minute.
const MaxSandboxTimeoutMs = 60000

// Validate performs range checks on the whole configuration value.
// Called on Load (fail-fast) and again on Save.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Naming.SanitizeMode {
	case naming.ModeReplace, naming.ModeStrip:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)",
			ErrInvalidSanitizeMode, c.Naming.SanitizeMode, naming.ModeReplace, naming.ModeStrip)
	}

	if c.Naming.MaxFilenameLength < MinFilenameLength || c.Naming.MaxFilenameLength > MaxFilenameLength {
		return fmt.Errorf("%w: %d (want %d..%d)",
			ErrInvalidMaxFilenameLength, c.Naming.MaxFilenameLength, MinFilenameLength, MaxFilenameLength)
	}

	if c.Sandbox.TimeoutMs <= 0 || c.Sandbox.TimeoutMs > MaxSandboxTimeoutMs {
		return fmt.Errorf("%w: %d ms (want 1..%d)",
			ErrInvalidSandboxTimeout, c.Sandbox.TimeoutMs, MaxSandboxTimeoutMs)
	}

	if c.Selectors.Container == "" {
		return fmt.Errorf("%w: selectors.container", ErrMissingSelector)
	}

	if c.Addr == "" {
		return ErrInvalidAddr
	}

	return nil
}

// Merge returns a copy of c with the non-zero fields of patch applied.
// This is the only supported way to "update" configuration: the result
// is a new value, the receiver is untouched.
func (c Config) Merge(patch Config) Config {
	out := c

	if patch.Naming.SanitizeMode != "" {
		out.Naming.SanitizeMode = patch.Naming.SanitizeMode
	}
	if patch.Naming.MaxFilenameLength != 0 {
		out.Naming.MaxFilenameLength = patch.Naming.MaxFilenameLength
	}
	out.Naming.IncludeTimestamp = patch.Naming.IncludeTimestamp
	out.Naming.FlatStructure = patch.Naming.FlatStructure
	out.Stitch = patch.Stitch

	if patch.Selectors.Container != "" {
		out.Selectors.Container = patch.Selectors.Container
	}
	if patch.Selectors.Title != "" {
		out.Selectors.Title = patch.Selectors.Title
	}
	if patch.Selectors.CodeBlock != "" {
		out.Selectors.CodeBlock = patch.Selectors.CodeBlock
	}
	if patch.Selectors.HTMLMarker != "" {
		out.Selectors.HTMLMarker = patch.Selectors.HTMLMarker
	}
	if patch.Selectors.ReactMarker != "" {
		out.Selectors.ReactMarker = patch.Selectors.ReactMarker
	}
	if patch.Selectors.MermaidMarker != "" {
		out.Selectors.MermaidMarker = patch.Selectors.MermaidMarker
	}

	if patch.Sandbox.TimeoutMs != 0 {
		out.Sandbox.TimeoutMs = patch.Sandbox.TimeoutMs
	}
	if patch.Sandbox.AllowedLanguages != nil {
		out.Sandbox.AllowedLanguages = patch.Sandbox.AllowedLanguages
	}

	out.Assist.Enabled = patch.Assist.Enabled
	if patch.Assist.ModelName != "" {
		out.Assist.ModelName = patch.Assist.ModelName
	}

	if patch.Addr != "" {
		out.Addr = patch.Addr
	}
	if patch.CORSOrigins != nil {
		out.CORSOrigins = patch.CORSOrigins
	}
	if patch.InboxDir != "" {
		out.InboxDir = patch.InboxDir
	}
	if patch.OutputDir != "" {
		out.OutputDir = patch.OutputDir
	}
	if patch.CachePath != "" {
		out.CachePath = patch.CachePath
	}

	return out
}
