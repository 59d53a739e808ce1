package cmd

import (
	"context"
	"log/slog"

	"github.com/koopa0/artivault/internal/assist"
	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/pipeline"
)

// newNamer creates the title suggester when assist is enabled. A
// missing API key or client failure disables suggestion instead of
// failing the command; the pipeline falls back to positional titles.
func newNamer(ctx context.Context, cfg *config.Config, logger *slog.Logger) pipeline.Namer {
	if !cfg.Assist.Enabled {
		return nil
	}
	s, err := assist.NewSuggester(ctx, cfg.Assist.ModelName)
	if err != nil {
		logger.Warn("title suggestion disabled", "error", err)
		return nil
	}
	return s
}
