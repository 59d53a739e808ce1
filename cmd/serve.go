package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/koopa0/artivault/api"
	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/download"
	"github.com/koopa0/artivault/internal/pipeline"
	"github.com/koopa0/artivault/internal/preview"
	"github.com/koopa0/artivault/internal/sandbox"
	"github.com/koopa0/artivault/internal/watch"
)

// runServe starts the HTTP API server and the inbox watcher.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(cfg.Addr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting artivault server", "version", Version)

	store, err := artifact.OpenStore(cfg.CachePath, logger)
	if err != nil {
		return fmt.Errorf("opening artifact cache: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	trigger, err := download.NewDir(cfg.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("preparing output directory: %w", err)
	}

	configDir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("resolving config directory: %w", err)
	}

	srv, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Pipeline:    p,
		Runner:      sandbox.NewRunner(sandboxTimeout(cfg), cfg.Sandbox.AllowedLanguages, logger),
		Renderer:    preview.NewRenderer(),
		Trigger:     trigger,
		Store:       store,
		Settings:    api.NewSettings(*cfg, configDir),
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := os.MkdirAll(cfg.InboxDir, 0o750); err != nil {
		return fmt.Errorf("creating inbox directory: %w", err)
	}
	watcher := watch.New(cfg.InboxDir, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, addr)
	})
	g.Go(func() error {
		return watcher.Run(ctx, func(path string) {
			processExport(ctx, p, trigger, cfg, path, logger)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// processExport runs the pipeline for an export dropped into the
// inbox. The export is renamed with a .done suffix after a successful
// archive so restarts do not repackage it.
func processExport(ctx context.Context, p *pipeline.Pipeline, trigger download.Trigger, cfg *config.Config, path string, logger *slog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("opening inbox export failed", "path", path, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	res, err := p.Process(ctx, f, cfg, "")
	if err != nil {
		if errors.Is(err, artifact.ErrNoArtifacts) {
			logger.Info("inbox export has no artifacts", "path", path)
		} else {
			logger.Error("processing inbox export failed", "path", path, "error", err)
		}
		return
	}

	out, err := trigger.Download(ctx, res.Archive, archiveName(path, ""))
	if err != nil {
		logger.Error("writing inbox archive failed", "path", path, "error", err)
		return
	}
	logger.Info("packaged inbox export",
		"path", filepath.Base(path),
		"count", res.Count,
		"archive", out)

	if err := os.Rename(path, path+".done"); err != nil {
		logger.Warn("marking export as processed failed", "path", path, "error", err)
	}
}
