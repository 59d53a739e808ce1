// Package naming maps artifacts to unique relative archive paths.
//
// Resolution is deterministic: the same batch resolved in the same
// order always yields the same paths. Uniqueness is guaranteed by a
// per-batch used-names set owned by the Resolver; a Resolver must
// never be shared across pipeline invocations.
package naming

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/koopa0/artivault/internal/artifact"
)

// Sanitize modes for invalid filename characters.
const (
	ModeReplace = "replace" // substitute underscores
	ModeStrip   = "strip"   // delete
)

// DefaultMaxFilenameLength bounds the resolved leaf name in bytes.
const DefaultMaxFilenameLength = 255

// Options holds the naming settings for one batch.
type Options struct {
	IncludeTimestamp  bool
	SanitizeMode      string // ModeReplace (default) or ModeStrip
	MaxFilenameLength int    // 0 means DefaultMaxFilenameLength
	FlatStructure     bool
	Conversation      string // optional folder name source for grouped layout
}

// Resolver assigns collision-free filenames within a single batch.
// Resolution order is part of the contract: the first artifact with a
// given title wins the unsuffixed name. Not safe for concurrent use.
type Resolver struct {
	opts Options
	used map[string]struct{}
}

// NewResolver creates a Resolver with an empty used-names set.
func NewResolver(opts Options) *Resolver {
	if opts.SanitizeMode == "" {
		opts.SanitizeMode = ModeReplace
	}
	if opts.MaxFilenameLength <= 0 {
		opts.MaxFilenameLength = DefaultMaxFilenameLength
	}
	return &Resolver{
		opts: opts,
		used: make(map[string]struct{}),
	}
}

// Resolve produces the archive location for one artifact and registers
// the chosen name so later artifacts cannot collide with it.
func (r *Resolver) Resolve(a artifact.Artifact) artifact.File {
	base := strings.TrimSpace(a.Title)
	if base == "" {
		base = "untitled"
	}

	if r.opts.IncludeTimestamp {
		base += "_" + sortableTimestamp(a)
	}

	base = Sanitize(base, r.opts.SanitizeMode)
	if base == "" {
		base = "untitled"
	}

	ext := Extension(a)
	base = truncate(base, r.opts.MaxFilenameLength-len(ext)-1)

	name := base + "." + ext
	for n := 2; ; n++ {
		if _, taken := r.used[name]; !taken {
			break
		}
		suffix := fmt.Sprintf("_%d", n)
		name = truncate(base, r.opts.MaxFilenameLength-len(ext)-len(suffix)-1) + suffix + "." + ext
	}
	r.used[name] = struct{}{}

	f := artifact.File{Artifact: a, Name: name}
	if !r.opts.FlatStructure {
		f.Dir = GroupDir(a, r.opts.Conversation)
	}
	return f
}

// GroupDir computes the directory prefix for grouped (non-flat)
// layout: an optional conversation folder plus year/month of the
// artifact's creation time. Pure function of its inputs.
func GroupDir(a artifact.Artifact, conversation string) string {
	ym := a.CreatedAt.UTC().Format("2006/01")
	folder := Sanitize(strings.TrimSpace(conversation), ModeReplace)
	if folder == "" {
		return ym
	}
	return folder + "/" + ym
}

// sortableTimestamp renders the creation time as a filesystem-safe,
// lexically sortable string (ISO-8601 with colons replaced).
func sortableTimestamp(a artifact.Artifact) string {
	return a.CreatedAt.UTC().Format("2006-01-02T15-04-05")
}

// Sanitize rewrites a base name so it is legal on common filesystems.
// Whitespace runs become single underscores in both modes; any other
// character that is not a letter, digit, dot, dash, or underscore is
// replaced with an underscore (ModeReplace) or deleted (ModeStrip).
// Leading and trailing dots, dashes, and underscores are stripped, and
// underscore runs are collapsed.
func Sanitize(s, mode string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			inSpace = true
			continue
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '.' || c == '-' || c == '_':
			if inSpace {
				b.WriteByte('_')
			}
			b.WriteRune(c)
		case unicode.IsControl(c) || mode == ModeStrip:
			// dropped
		default:
			if inSpace {
				b.WriteByte('_')
			}
			b.WriteByte('_')
		}
		inSpace = false
	}

	out := collapseUnderscores(b.String())
	return strings.Trim(out, "._-")
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// truncate cuts s to at most max bytes without splitting a rune.
// The extension is never truncated; only the base name shrinks.
func truncate(s string, max int) string {
	if max < 1 {
		max = 1
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	if max == 0 {
		return "_"
	}
	return s[:max]
}
