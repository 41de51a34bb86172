package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/schema"
	"github.com/specialistvlad/storeysplit/internal/sink"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	catalog *schema.Catalog
	s3      sink.S3Config

	s3Client sink.PutObjectAPI
}

// NewApp is the constructor for the main application. Progress and the run
// summary go to outW, logs go to errW. It fails when the schema profiles
// cannot be loaded.
func NewApp(outW, errW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	loadEnv(logger)

	catalog, err := schema.Load(ctx, cfg.ProfilePaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema profiles: %w", err)
	}
	logger.Debug("Schema profiles ready.")

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		catalog: catalog,
		s3:      s3ConfigFromEnv(),
	}, nil
}

// Catalog returns the application's schema catalog. This is primarily for testing.
func (a *App) Catalog() *schema.Catalog {
	return a.catalog
}
