// Package archive packages resolved artifact files into a single ZIP
// blob.
//
// The output is a standard ZIP archive (DEFLATE entries addressable by
// relative path) so it opens with generic tooling. Entry contents are
// written byte-exact: no re-encoding, no line-ending normalization.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/flate"
)

// ErrNoEntries is returned when Build is called with nothing to pack.
// Empty archives are never produced.
var ErrNoEntries = errors.New("no entries to archive")

// Entry is one file inside the archive.
type Entry struct {
	Path    string // relative path, forward slashes
	Content []byte
}

// Builder produces ZIP archives.
type Builder struct {
	logger *slog.Logger
	level  int
}

// NewBuilder creates a Builder compressing at the default DEFLATE
// level.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, level: flate.DefaultCompression}
}

// Build packs entries into a single ZIP blob. Either the whole archive
// is produced or an error is returned; partial archives are never
// handed back. The context is honored between entries so a discarded
// request stops compressing promptly.
func (b *Builder) Build(ctx context.Context, entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, b.level)
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("archive build cancelled: %w", err)
		}
		if e.Path == "" {
			_ = zw.Close()
			return nil, fmt.Errorf("archive entry with empty path")
		}

		w, err := zw.Create(e.Path)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("create archive entry %s: %w", e.Path, err)
		}
		if _, err := w.Write(e.Content); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("write archive entry %s: %w", e.Path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	b.logger.Debug("built archive",
		"entries", len(entries),
		"bytes", buf.Len())
	return buf.Bytes(), nil
}

// BuildSingle packs one entry. Observably equivalent to Build with a
// one-element list.
func (b *Builder) BuildSingle(ctx context.Context, e Entry) ([]byte, error) {
	return b.Build(ctx, []Entry{e})
}
