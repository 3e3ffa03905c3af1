package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/registry"
)

// RunBuild performs a single registry build and persists it to the site
// index. Every invalid document and duplicate slug in the corpus is reported;
// a failed build leaves the previously persisted index untouched.
func RunBuild(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg)

	svc, db, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := svc.Rebuild(ctx)
	if err != nil {
		var buildErr *registry.BuildError
		if errors.As(err, &buildErr) {
			for _, docErr := range buildErr.Documents {
				logger.Error("invalid document",
					slog.String("source", docErr.Source),
					slog.String("error", docErr.Err.Error()))
			}
			for _, dup := range buildErr.Duplicates {
				logger.Error("duplicate slug",
					slog.String("slug", dup.Slug),
					slog.Any("sources", dup.Sources))
			}
		}
		return fmt.Errorf("build failed: %w", err)
	}

	logger.Info("build complete",
		slog.Int("posts", reg.Len()),
		slog.Int("tags", len(reg.Tags())),
		slog.Int("categories", len(reg.Categories())))
	return nil
}

// RunNew scaffolds a new post file in the content directory and prints its
// path.
func RunNew(ctx context.Context, cfg *Config, title string) error {
	logger := newLogger(cfg)

	svc, db, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	path, err := svc.ScaffoldPost(ctx, title, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, path)
	return nil
}

// RunMCP builds the registry and serves the MCP toolset over stdio. Logs go
// to stderr so stdout stays clean for the protocol.
func RunMCP(ctx context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, db, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := svc.Rebuild(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(svc).ServeStdio()
}
