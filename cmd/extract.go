package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/koopa0/artivault/internal/archive"
	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/download"
	"github.com/koopa0/artivault/internal/extract"
	"github.com/koopa0/artivault/internal/pipeline"
)

// runExtract packages artifacts from one or more conversation export
// files, one archive per export.
func runExtract(args []string) error {
	flags := flag.NewFlagSet("extract", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	outDir := flags.String("o", "", "output directory (- writes the archive to stdout)")
	conversation := flags.String("conversation", "", "conversation folder name")
	noStitch := flags.Bool("no-stitch", false, "keep artifact versions as separate files")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parsing extract flags: %w", err)
	}

	inputs, err := expandInputs(flags.Args())
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New("extract: at least one export file is required")
	}
	toStdout := *outDir == "-"
	if toStdout && len(inputs) > 1 {
		return errors.New("extract: -o - accepts exactly one export file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *noStitch {
		cfg.Stitch = false
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var trigger download.Trigger
	if !toStdout {
		dir := cfg.OutputDir
		if *outDir != "" {
			dir = *outDir
		}
		trigger, err = download.NewDir(dir, logger)
		if err != nil {
			return fmt.Errorf("preparing output directory: %w", err)
		}
	}

	for _, input := range inputs {
		if err := extractOne(ctx, p, trigger, cfg, input, *conversation); err != nil {
			return err
		}
	}
	return nil
}

// extractOne runs the pipeline for a single export file.
func extractOne(ctx context.Context, p *pipeline.Pipeline, trigger download.Trigger, cfg *config.Config, input, conversation string) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer func() { _ = f.Close() }()

	res, err := p.Process(ctx, f, cfg, conversation)
	if err != nil {
		if errors.Is(err, artifact.ErrNoArtifacts) {
			fmt.Fprintf(os.Stderr, "%s: no artifacts found\n", input)
			return nil
		}
		return fmt.Errorf("processing %s: %w", input, err)
	}

	if trigger == nil {
		if _, err := os.Stdout.Write(res.Archive); err != nil {
			return fmt.Errorf("writing archive to stdout: %w", err)
		}
		return nil
	}

	path, err := trigger.Download(ctx, res.Archive, archiveName(input, conversation))
	if err != nil {
		return fmt.Errorf("writing archive for %s: %w", input, err)
	}
	fmt.Fprintf(os.Stderr, "%s: %d file(s) -> %s\n", input, res.Count, path)
	return nil
}

// expandInputs replaces directory arguments with the HTML exports they
// contain, leaving file arguments untouched.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("extract: reading %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".html", ".htm":
				out = append(out, filepath.Join(arg, e.Name()))
			}
		}
	}
	return out, nil
}

// archiveName derives the archive filename from the conversation name
// or the export file basename.
func archiveName(input, conversation string) string {
	if conversation != "" {
		return conversation + ".zip"
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".zip"
}

// newPipeline assembles the extraction pipeline from configuration.
// Title suggestion joins only when assist is enabled and a client can
// be created; a missing API key degrades to positional titles.
func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	extractor := extract.NewExtractor(cfg.Selectors, logger)
	builder := archive.NewBuilder(logger)

	namer := newNamer(ctx, cfg, logger)

	p, err := pipeline.New(extractor, builder, namer, logger)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	return p, nil
}
