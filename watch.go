// watch.go: Configuration file watching for live retention changes
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses bursts of file events into one reload
const DefaultWatchDebounce = 100 * time.Millisecond

// ReloadCallback is called after every reload attempt. err is nil when the
// new configuration was applied.
type ReloadCallback func(cfg *Config, err error)

// WatchOption configures a ConfigWatcher.
type WatchOption func(*ConfigWatcher)

// WithDebounce sets the quiet period before a changed file is reloaded.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *ConfigWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// ConfigWatcher reloads a configuration file when it changes and applies the
// tunable fields to an Engine through Reconfigure.
type ConfigWatcher struct {
	path     string
	engine   *Engine
	callback ReloadCallback
	debounce time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup // reloads started before Stop
}

// WatchConfig starts watching path and returns the running watcher.
//
// The parent directory is watched rather than the file, since editors often
// replace the file through a rename. Call Stop to release the watcher.
func WatchConfig(path string, engine *Engine, callback ReloadCallback, opts ...WatchOption) (*ConfigWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: config path is empty", ErrInvalidConfig)
	}
	if engine == nil {
		return nil, errors.New("autosplit: engine cannot be nil")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("autosplit: failed to create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		return nil, errors.Join(
			fmt.Errorf("autosplit: failed to watch directory %s: %w", dir, err),
			fsWatcher.Close(),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &ConfigWatcher{
		path:     path,
		engine:   engine,
		callback: callback,
		debounce: DefaultWatchDebounce,
		watcher:  fsWatcher,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w, nil
}

// Stop stops watching and waits for the event loop and any running reload
// to finish. No callback runs after Stop returns. It must not be called from
// the reload callback.
func (w *ConfigWatcher) Stop() error {
	w.mu.Lock()
	already := w.stopped
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	var err error
	if !already {
		w.cancel()
		err = w.watcher.Close()
	}
	<-w.done
	w.inflight.Wait()
	return err
}

func (w *ConfigWatcher) run() {
	defer close(w.done)
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.notify(nil, fmt.Errorf("autosplit: watch error: %w", err))
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *ConfigWatcher) reload() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	cfg, err := LoadConfig(w.path)
	if err == nil {
		err = w.engine.Reconfigure(cfg)
	}
	w.notify(cfg, err)
}

func (w *ConfigWatcher) notify(cfg *Config, err error) {
	if w.callback != nil {
		w.callback(cfg, err)
	}
}
