package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and passes each valid config to fn.
//
// The parent directory is watched rather than the file itself so editors that
// save by rename are still seen. Invalid configs are logged and skipped; the
// previous config stays in effect. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(Config), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching config", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("config reload failed", "path", abs, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", abs, "policy", cfg.Policy.Kind)
			fn(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher error", "error", err)
		}
	}
}
