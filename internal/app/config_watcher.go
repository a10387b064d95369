package app

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/splitmind/broker/internal/policy"
)

const (
	configDebounce     = 200 * time.Millisecond
	configPollFallback = 30 * time.Second
)

// ConfigWatcher watches the file BROKER_CONFIG points at and hot-reloads it
// into a Policy via Replace, so a running broker can pick up a new
// heartbeat timeout, query timeout or status directory without restarting
// and dropping in-flight sessions. Values copied out of the Policy at
// startup (store URL, queue and recent-changes bounds, monitor interval)
// keep their startup values. The file is also re-read every pollInterval
// (default configPollFallback); that poll is the only reload path when
// fsnotify can't watch the file (missing directory, platform limits).
type ConfigWatcher struct {
	path         string
	pol          *policy.Policy
	logger       *log.Logger
	pollInterval time.Duration

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ConfigWatcherOption configures a ConfigWatcher.
type ConfigWatcherOption func(*ConfigWatcher)

// WithConfigPollInterval overrides the poll interval (default 30s).
func WithConfigPollInterval(d time.Duration) ConfigWatcherOption {
	return func(w *ConfigWatcher) { w.pollInterval = d }
}

// NewConfigWatcher builds a watcher over path. A nil or empty path makes
// Start a no-op, since there's nothing to watch and the loaded Policy
// already holds the env-var defaults.
func NewConfigWatcher(path string, pol *policy.Policy, logger *log.Logger, opts ...ConfigWatcherOption) *ConfigWatcher {
	w := &ConfigWatcher{
		path:         path,
		pol:          pol,
		logger:       logger,
		pollInterval: configPollFallback,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start watches until ctx is cancelled or Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) {
	defer close(w.doneCh)
	if w.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	useFsnotify := err == nil
	if err != nil {
		w.logger.Printf("config watcher: fsnotify init failed (%v), using poll-only", err)
	} else {
		w.watcher = watcher
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(w.path)); err != nil {
			w.logger.Printf("config watcher: watch %s failed (%v), using poll-only", filepath.Dir(w.path), err)
			useFsnotify = false
		}
	}

	if useFsnotify {
		go w.watchLoop()
	}
	w.pollLoop(ctx)
}

// Stop signals the watcher to stop. Call after cancelling the context
// passed to Start.
func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *ConfigWatcher) watchLoop() {
	name := filepath.Base(w.path)
	var debounce *time.Timer
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(configDebounce, w.reload)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *ConfigWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

func (w *ConfigWatcher) reload() {
	cfg, err := policy.LoadConfig(w.path)
	if err != nil {
		w.logger.Printf("config watcher: reload %s failed: %v, keeping current config", w.path, err)
		return
	}
	w.pol.Replace(cfg)
	w.logger.Printf("config watcher: reloaded %s", w.path)
}
