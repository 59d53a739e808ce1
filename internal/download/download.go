// Package download persists produced archives for the user.
//
// Trigger is the capability interface the pipeline's callers depend
// on; Dir is the filesystem implementation writing into the configured
// output directory. Errors surface in the returned value, never via a
// side channel, and nothing is retried automatically.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Trigger delivers a finished archive to its destination.
type Trigger interface {
	// Download stores blob under suggestedName and returns the final
	// location.
	Download(ctx context.Context, blob []byte, suggestedName string) (string, error)
}

// Dir is a Trigger writing into a local directory.
type Dir struct {
	path   string
	logger *slog.Logger
}

// NewDir creates a Trigger rooted at path, creating it if needed.
func NewDir(path string, logger *slog.Logger) (*Dir, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Dir{path: path, logger: logger}, nil
}

// Download writes blob to the output directory. An existing file with
// the suggested name is never overwritten; a numeric suffix is added
// instead.
func (d *Dir) Download(ctx context.Context, blob []byte, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("download cancelled: %w", err)
	}
	if suggestedName == "" {
		suggestedName = "artifacts.zip"
	}

	target := filepath.Join(d.path, filepath.Base(suggestedName))
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}

	if err := os.WriteFile(target, blob, 0o640); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}

	d.logger.Info("archive written", "path", target, "bytes", len(blob))
	return target, nil
}
