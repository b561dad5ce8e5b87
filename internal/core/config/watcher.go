package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads phpmodel.toml when its content changes. The directory is
// watched rather than the file so editors that replace the file on save
// keep working.
type Watcher struct {
	path     string
	debounce time.Duration
	callback func(*Config)
	logger   *slog.Logger

	mu   sync.Mutex
	last uint64

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewWatcher returns a watcher for path. callback receives every reloaded
// configuration, with environment overrides applied, that passes
// validation. Broken edits are logged and skipped.
func NewWatcher(path string, callback func(*Config)) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: 100 * time.Millisecond,
		callback: callback,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.last = xxhash.Sum64(data)
	}
	return w
}

func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		w.logger.Debug("watching config file", "path", w.path)

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, w.reload)

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "path", w.path, "error", err)

			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop is safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("failed to read configuration", "path", w.path, "error", err)
		return
	}
	sum := xxhash.Sum64(data)
	w.mu.Lock()
	unchanged := sum == w.last
	w.last = sum
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid configuration", "path", w.path, "error", err)
		return
	}
	ApplyEnvOverrides(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		w.logger.Warn("ignoring invalid configuration", "path", w.path, "error", errs[0])
		return
	}
	w.logger.Info("configuration reloaded", "path", w.path)
	if w.callback != nil {
		w.callback(cfg)
	}
}
