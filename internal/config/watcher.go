package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GabrielNunesIT/logbot/internal/logging"
)

// ConfigWatcher reloads the logbot config file when it changes on disk or when asked to
// (SIGHUP). Only the newest successfully loaded config is kept for the consumer.
type ConfigWatcher struct {
	path     string
	changes  chan *Config
	errs     chan error
	debounce time.Duration
	logger   logging.ILogger

	mu   sync.Mutex
	last *Config
}

// NewConfigWatcher returns a watcher for the config file at path. Nothing is watched until Start.
func NewConfigWatcher(path string, log logging.ILogger) *ConfigWatcher {
	return &ConfigWatcher{
		path:     filepath.Clean(path),
		changes:  make(chan *Config, 1),
		errs:     make(chan error, 1),
		debounce: 100 * time.Millisecond,
		logger:   log.SubLogger("ConfigWatcher"),
	}
}

// Changes delivers reloaded configs, newest only.
func (w *ConfigWatcher) Changes() <-chan *Config {
	return w.changes
}

// Errors delivers load and watch failures.
func (w *ConfigWatcher) Errors() <-chan error {
	return w.errs
}

// Start watches the directory holding the config file until ctx is done. Editors and
// config management replace the file, which would drop a watch placed on the file itself.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	w.logger.Debugf("watching config: %s", w.path)
	go w.loop(ctx, fw)
	return nil
}

func (w *ConfigWatcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	settle := time.NewTimer(w.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.touchesConfig(ev) {
				continue
			}
			w.logger.Debugf("config changed on disk: op=%s", ev.Op)
			// A save often arrives as several events; reload once they settle.
			settle.Reset(w.debounce)

		case <-settle.C:
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("config watch failed: %v", err)
			w.publishErr(err)
		}
	}
}

// touchesConfig reports whether ev wrote or (re)created the config file itself.
func (w *ConfigWatcher) touchesConfig(ev fsnotify.Event) bool {
	return filepath.Clean(ev.Name) == w.path && ev.Op&(fsnotify.Write|fsnotify.Create) != 0
}

func (w *ConfigWatcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Errorf("config reload rejected, keeping current settings: %v", err)
		w.publishErr(err)
		return
	}

	w.mu.Lock()
	w.last = cfg
	w.mu.Unlock()

	w.logger.Infof("config reloaded: path=%s", w.path)

	// Replace a config the consumer has not picked up yet.
	for {
		select {
		case w.changes <- cfg:
			return
		default:
		}
		select {
		case <-w.changes:
			w.logger.Debug("superseding unread config")
		default:
		}
	}
}

func (w *ConfigWatcher) publishErr(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

// Reload loads the file now, as on a change event. It backs SIGHUP handling.
func (w *ConfigWatcher) Reload() {
	w.reload()
}

// LastConfig returns the last config that loaded cleanly, or nil.
func (w *ConfigWatcher) LastConfig() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
