// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// defaultDebounce coalesces the burst of fsnotify events that editors emit
// for a single save into one reload.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when the config file changes on disk and
// hands each successfully reloaded Config to a callback. Invalid files are
// logged and skipped; the last good configuration stays in effect.
type Watcher struct {
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	onChange func(*Config)
	debounce time.Duration

	mu      sync.Mutex
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher over the default config directory. onChange
// runs on the watcher's goroutine for every valid reload.
func NewWatcher(log *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fsw,
		log:      log,
		onChange: onChange,
		debounce: defaultDebounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. The config directory is created first so the watch
// can be established even before the first save.
func (w *Watcher) Watch() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	// Watch the directory, not the file: editors replace files on save,
	// which drops a watch placed on the file itself.
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.processEvents()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents turns file events into debounced reloads.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// scheduleReload arms the debounce timer unless one is already pending.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending {
		return
	}
	w.pending = true

	time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()

		if w.ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

// reload loads the config from disk and notifies on success.
func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		w.log.Warn("config reload failed, keeping previous", zap.Error(err))
		return
	}
	SetGlobal(cfg)
	w.log.Info("configuration reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// isConfigFile reports whether the changed path is one of the config files.
func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "config.toml" || base == "config.json"
}
