// Command seed loads catalogue files and upserts their products.
//
// Usage:
//
//	seed [file ...]
//
// With no arguments the files named by SEED_FILES are loaded. Each file is
// read from S3 (S3_BUCKET, S3_PREFIX) when S3_ENABLED is set, falling back to
// SEED_DIR on the local file system.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"luxe-store/internal/catalogseed"
	"luxe-store/internal/config"
	"luxe-store/internal/database"
	"luxe-store/internal/repository"
	"luxe-store/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := args
	if len(files) == 0 {
		files = cfg.S3.Files
	}
	if len(files) == 0 {
		return fmt.Errorf("no catalogue files to load")
	}

	fileLoader := catalogseed.NewFileLoader(cfg.S3.LocalDir, logger)
	var s3Loader catalogseed.Loader
	if cfg.S3.Enabled {
		s3Loader, err = catalogseed.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		}
	}
	loader := catalogseed.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	set, err := catalogseed.LoadAll(ctx, loader, files, logger)
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	products := service.NewProductService(repository.NewProductRepository(pool, logger), logger)

	n, err := products.Import(ctx, set.Products())
	if err != nil {
		return err
	}

	logger.Info().Int("files", len(files)).Int("products", n).Msg("catalogue seeded")
	return nil
}
