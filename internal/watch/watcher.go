// Package watch rebuilds the registry when the content tree changes.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/siteservice"
	"github.com/starford/ansuz/internal/sse"
)

// debounce coalesces bursts of file events (editor save, git checkout) into
// a single rebuild.
const debounce = 250 * time.Millisecond

// Run starts an fsnotify watcher on the content root and triggers a
// wholesale registry rebuild after each burst of .md changes, until ctx is
// cancelled. Rebuild outcomes are announced on broker (if non-nil).
//
// New directories created at runtime are automatically added to the watch
// list. The registry has no incremental update path: any change rebuilds
// everything, and the fingerprint check inside the service skips bursts
// that ended up changing nothing.
func Run(ctx context.Context, svc *siteservice.Service, contentRoot string, logger *slog.Logger, broker *sse.Broker) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, contentRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", contentRoot))

	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(debounce)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			rebuild(ctx, svc, logger, broker)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories: add to the watch list so posts created
			// inside them are seen.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					scheduleRebuild()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}

			logger.Debug("watcher: change",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			scheduleRebuild()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func rebuild(ctx context.Context, svc *siteservice.Service, logger *slog.Logger, broker *sse.Broker) {
	rebuilt, err := svc.RebuildIfChanged(ctx)
	if err != nil {
		var berr *registry.BuildError
		if errors.As(err, &berr) {
			logger.Warn("watcher: rebuild failed", slog.String("error", berr.Error()))
			if broker != nil {
				broker.PublishBuildError(berr.Error())
			}
			return
		}
		logger.Error("watcher: rebuild error", slog.String("error", err.Error()))
		return
	}
	if !rebuilt {
		logger.Debug("watcher: corpus unchanged, rebuild skipped")
		return
	}

	reg, err := svc.Registry()
	if err != nil {
		return
	}
	logger.Info("watcher: rebuilt", slog.Int("posts", reg.Len()))
	if broker != nil {
		broker.PublishRebuilt(reg.Len(), svc.Fingerprint())
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
