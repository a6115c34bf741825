// Copyright 2026 © The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Watcher polls a set of directory roots for manifest changes and notifies
// listeners, so skill and wrapper catalogs can reload without a restart.
// Polling mod times keeps it portable; catalog roots are small trees.
type Watcher struct {
	mu          sync.RWMutex
	roots       []string
	interval    time.Duration
	lastModTime map[string]time.Time
	listeners   []func()
	stopCh      chan struct{}
	doneCh      chan struct{}
	logger      *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval for file changes.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher over the given roots. Missing roots are
// tolerated; they start reporting changes once they appear.
func NewWatcher(roots []string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:       roots,
		interval:    time.Second,
		lastModTime: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.snapshot(w.lastModTime)
	return w
}

// OnChange registers a callback invoked after a change is detected.
func (w *Watcher) OnChange(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop stops the watcher and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.checkForChanges() {
				w.notify()
			}
		}
	}
}

// checkForChanges rescans the roots and reports whether any manifest was
// added, removed, or modified since the last scan.
func (w *Watcher) checkForChanges() bool {
	current := make(map[string]time.Time)
	w.snapshot(current)

	w.mu.Lock()
	defer w.mu.Unlock()

	changed := len(current) != len(w.lastModTime)
	if !changed {
		for path, mod := range current {
			last, ok := w.lastModTime[path]
			if !ok || mod.After(last) {
				changed = true
				break
			}
		}
	}
	w.lastModTime = current
	return changed
}

func (w *Watcher) snapshot(into map[string]time.Time) {
	for _, root := range w.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil {
				into[path] = info.ModTime()
			}
			return nil
		})
	}
}

func (w *Watcher) notify() {
	w.mu.RLock()
	listeners := make([]func(), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.RUnlock()

	w.logger.Info("catalog files changed, notifying listeners")
	for _, fn := range listeners {
		fn()
	}
}
