package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"phpmodel/internal/shared/observability"
	"phpmodel/internal/shared/util"
)

// Options configures a Watcher. Zero values fall back to defaults.
type Options struct {
	Debounce     time.Duration
	ExcludeDirs  []string
	ExcludeFiles []string
	// Extensions are lowercase with a leading dot. Empty accepts every file.
	Extensions []string
	// MaxRunsPerSecond throttles onChange. Zero disables throttling.
	MaxRunsPerSecond float64
	Logger           *slog.Logger
}

// Watcher reports batches of changed source files. Writes that leave a
// file's content unchanged are dropped.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extensions   []string
	limiter      *util.Limiter
	logger       *slog.Logger
	onChange     func([]string)
	callbackMu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	pending   map[string]bool
	hashes    map[string]uint64
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(opts Options, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compile(opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compile(opts.ExcludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extensions:   opts.Extensions,
		limiter:      util.NewLimiter(opts.MaxRunsPerSecond, 1),
		logger:       logger,
		onChange:     onChange,
		ctx:          ctx,
		cancel:       cancel,
		pending:      make(map[string]bool),
		hashes:       make(map[string]uint64),
	}, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Watch registers every non-excluded directory under paths, records the
// current content of every watched file and starts the event loop.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range util.UniqueRoots(paths) {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
		w.walkFiles(path, w.seed)
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.walkFiles(event.Name, w.scheduleChange)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// changed records the content hash of path and reports whether it differs
// from the previous one. A file that disappeared counts as changed once.
func (w *Watcher) changed(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		_, known := w.hashes[path]
		delete(w.hashes, path)
		return known || !os.IsNotExist(err)
	}
	sum := xxhash.Sum64(content)
	prev, known := w.hashes[path]
	w.hashes[path] = sum
	return !known || prev != sum
}

func (w *Watcher) seed(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.changed(path)
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if !w.changed(path) {
		return
	}
	w.pending[path] = true

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := util.SortedStringKeys(w.pending)
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	throttled, err := w.limiter.Acquire(w.ctx)
	if err != nil {
		return
	}
	if throttled {
		observability.WatchRunsThrottledTotal.Inc()
		w.logger.Debug("watch run delayed by rate limit", "files", len(paths))
	}
	w.onChange(paths)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)
	if len(w.extensions) > 0 && !util.HasExtension(base, w.extensions) {
		return true
	}
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) walkFiles(root string, fn func(string)) {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.shouldExcludeFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	for _, f := range files {
		fn(f)
	}
}

func (w *Watcher) Close() error {
	w.cancel()
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
