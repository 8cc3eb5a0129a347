package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/theirongolddev/qview/internal/logging"
	"github.com/theirongolddev/qview/internal/watcher"
)

// Watch reloads the config at path whenever the file changes and passes the
// result to onChange. A file that fails to load is logged and skipped; the
// previous config stays in effect. It returns a function that stops watching.
func Watch(path string, onChange func(*Config), logger *slog.Logger, opts ...watcher.Option) (func(), error) {
	logger = logging.OrDiscard(logger)
	if path == "" {
		path = DefaultPath()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	opts = append([]watcher.Option{
		watcher.WithDebounce(500 * time.Millisecond),
		watcher.WithErrorHandler(func(err error) {
			logger.Warn("config watch error", logging.Err(err))
		}),
	}, opts...)

	w, err := watcher.New(func(changed string) {
		cfg, err := Load(changed)
		if err != nil {
			logger.Warn("config reload failed", slog.String("path", changed), logging.Err(err))
			return
		}
		logger.Info("config reloaded", slog.String("path", changed))
		if onChange != nil {
			onChange(cfg)
		}
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	if err := w.Add(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config path %s: %w", abs, err)
	}
	return func() { w.Close() }, nil
}
