// Package pipeline composes extraction, stitching, filename
// resolution, and archive building into one request/response
// operation.
//
// Sequencing is part of the contract: extraction and stitching finish
// before filename resolution begins, and resolution runs to completion
// before the archive is built, so the per-batch used-names invariant
// holds. Every invocation owns an independent resolver; concurrent
// requests never share collision state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/koopa0/artivault/internal/archive"
	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/extract"
	"github.com/koopa0/artivault/internal/naming"
	"github.com/koopa0/artivault/internal/stitch"
)

// Namer suggests titles for artifacts that only carry a positional
// placeholder. Implementations may call a remote model; failures must
// be tolerable because the pipeline degrades to the placeholder.
type Namer interface {
	SuggestTitle(ctx context.Context, a artifact.Artifact) (string, error)
}

// placeholderTitle matches the extractor's positional fallback.
var placeholderTitle = regexp.MustCompile(`^Artifact \d+$`)

// Result is the outcome of a successful pipeline run.
type Result struct {
	Archive []byte   // the ZIP blob
	Count   int      // number of files written
	Files   []string // relative paths inside the archive, in order
}

// Pipeline orchestrates one extraction-to-archive operation. All
// dependencies are injected at construction; there are no package
// singletons so tests can run independent instances.
type Pipeline struct {
	extractor *extract.Extractor
	builder   *archive.Builder
	namer     Namer // optional
	logger    *slog.Logger
}

// New creates a Pipeline. namer may be nil to disable title
// suggestion.
func New(extractor *extract.Extractor, builder *archive.Builder, namer Namer, logger *slog.Logger) (*Pipeline, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if builder == nil {
		return nil, errors.New("archive builder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		builder:   builder,
		namer:     namer,
		logger:    logger,
	}, nil
}

// Process extracts artifacts from conversation markup and packages
// them. Returns artifact.ErrNoArtifacts when the markup contains no
// containers, so callers can report "nothing to do" instead of
// shipping an empty archive.
func (p *Pipeline) Process(ctx context.Context, r io.Reader, cfg *config.Config, conversation string) (*Result, error) {
	arts, err := p.extractor.ExtractReader(r)
	if err != nil {
		return nil, fmt.Errorf("extracting artifacts: %w", err)
	}
	return p.Package(ctx, arts, cfg, conversation)
}

// Extract parses conversation markup without packaging. Used when the
// caller needs the raw batch, for example to cache fragments for
// deferred stitching.
func (p *Pipeline) Extract(r io.Reader) ([]artifact.Artifact, error) {
	return p.extractor.ExtractReader(r)
}

// Package stitches, names, and archives an already-extracted batch.
// The input slice is not modified.
func (p *Pipeline) Package(ctx context.Context, arts []artifact.Artifact, cfg *config.Config, conversation string) (*Result, error) {
	if len(arts) == 0 {
		return nil, artifact.ErrNoArtifacts
	}

	if cfg.Stitch {
		arts = stitch.Stitch(arts)
	}

	if p.namer != nil && cfg.Assist.Enabled {
		arts = p.suggestTitles(ctx, arts)
	}

	// One resolver per invocation: the shared used-names set must not
	// leak across requests.
	resolver := naming.NewResolver(cfg.NamingOptions(conversation))

	entries := make([]archive.Entry, 0, len(arts))
	paths := make([]string, 0, len(arts))
	for _, a := range arts {
		f := resolver.Resolve(a)
		entries = append(entries, archive.Entry{Path: f.Path(), Content: []byte(a.Content)})
		paths = append(paths, f.Path())
	}

	blob, err := p.builder.Build(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("building archive: %w", err)
	}

	p.logger.Info("packaged artifacts",
		"conversation", conversation,
		"count", len(paths))
	return &Result{Archive: blob, Count: len(paths), Files: paths}, nil
}

// PackageSingle packages exactly one artifact. Observably equivalent
// to Package with a one-element batch.
func (p *Pipeline) PackageSingle(ctx context.Context, a artifact.Artifact, cfg *config.Config) (*Result, error) {
	return p.Package(ctx, []artifact.Artifact{a}, cfg, "")
}

// suggestTitles asks the namer to replace positional placeholders.
// Records are copied, never mutated; any suggestion failure keeps the
// placeholder and the batch moves on.
func (p *Pipeline) suggestTitles(ctx context.Context, arts []artifact.Artifact) []artifact.Artifact {
	out := make([]artifact.Artifact, len(arts))
	copy(out, arts)
	for i, a := range out {
		if !placeholderTitle.MatchString(a.Title) {
			continue
		}
		title, err := p.namer.SuggestTitle(ctx, a)
		if err != nil {
			p.logger.Warn("title suggestion failed, keeping placeholder",
				"id", a.ID,
				"error", err)
			continue
		}
		if title != "" {
			out[i].Title = title
		}
	}
	return out
}
