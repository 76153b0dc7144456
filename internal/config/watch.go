package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it is written or replaced and passes
// every successfully decoded result to onChange. The parent directory is watched
// because Save replaces the file by renaming a temp file over it.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(AppConfig)) error {
	if logger == nil {
		logger = slog.Default().With("component", "config.watch")
	}
	cleanPath := filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(cleanPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer func() {
			_ = watcher.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != cleanPath {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(cleanPath)
				if err != nil {
					logger.Warn("reload config failed", "path", cleanPath, "error", err)
					continue
				}
				if err := cfg.Validate(); err != nil {
					logger.Warn("reloaded config is invalid", "path", cleanPath, "error", err)
					continue
				}
				logger.Info("config file changed", "path", cleanPath)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
