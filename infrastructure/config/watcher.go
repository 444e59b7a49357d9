package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigWatcher reloads the configuration when files in the config directory
// change and hands the new value to registered components.
type ConfigWatcher struct {
	loader  *Loader
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu         sync.RWMutex
	config     *Config
	components map[string]func(*Config) error
	order      []string
	debounce   *time.Timer

	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewConfigWatcher creates a watcher around initial. Hot reloading only
// starts in development; elsewhere the watcher just serves initial.
func NewConfigWatcher(initial *Config, loader *Loader, logger *zap.Logger) (*ConfigWatcher, error) {
	w := &ConfigWatcher{
		loader:     loader,
		logger:     logger.Named("config"),
		config:     initial,
		components: make(map[string]func(*Config) error),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}

	if initial.Environment != Development {
		close(w.done)
		w.logger.Info("Configuration hot reloading disabled",
			zap.String("environment", string(initial.Environment)))
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(loader.basePath); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.basePath, err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()

	w.logger.Info("Configuration hot reloading enabled", zap.String("dir", loader.basePath))
	return w, nil
}

// RegisterComponent registers fn to receive every reloaded configuration.
func (w *ConfigWatcher) RegisterComponent(name string, fn func(*Config) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.components[name]; !exists {
		w.order = append(w.order, name)
	}
	w.components[name] = fn
}

// GetConfig returns the current configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop ends the watch loop and waits for it to exit.
func (w *ConfigWatcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		<-w.done
		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *ConfigWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()))

			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.debounce = time.AfterFunc(reloadDebounce, w.Reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// Reload loads the configuration again and notifies components when it
// changed. An invalid configuration is logged and the previous one kept.
func (w *ConfigWatcher) Reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.config
	if reflect.DeepEqual(withoutSources(prev), withoutSources(next)) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.config = next
	names := append([]string(nil), w.order...)
	fns := make([]func(*Config) error, len(names))
	for i, name := range names {
		fns[i] = w.components[name]
	}
	w.mu.Unlock()

	for i, fn := range fns {
		if err := fn(next); err != nil {
			w.logger.Error("Failed to reload component", zap.String("component", names[i]), zap.Error(err))
			continue
		}
		w.logger.Info("Component reloaded", zap.String("component", names[i]))
	}
}

func withoutSources(c *Config) Config {
	cp := *c
	cp.LoadedFrom = nil
	return cp
}

func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
