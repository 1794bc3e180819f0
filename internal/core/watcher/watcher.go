package watcher

import (
	"changeimpact/internal/shared/observability"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"
)

// Watcher reports changed source files after a quiet period. Writes that
// leave a file's content unchanged are suppressed by comparing xxh3 hashes.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	filter     *Filter
	debounce   time.Duration
	onChange   func([]string)
	callbackMu sync.Mutex

	pendingMu sync.Mutex
	pending   []string
	queued    map[string]bool
	timer     *time.Timer

	hashMu sync.Mutex
	hashes map[string]uint64
}

// NewWatcher builds a watcher delivering batches of absolute paths, in
// first-seen order, to onChange.
func NewWatcher(debounce time.Duration, filter *Filter, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || filter == nil {
		return nil, os.ErrInvalid
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		filter:    filter,
		debounce:  debounce,
		onChange:  onChange,
		queued:    make(map[string]bool),
		hashes:    make(map[string]uint64),
	}, nil
}

// Watch registers every non-excluded directory under roots, records the
// content hash of existing sources and starts the event loop.
func (w *Watcher) Watch(roots []string) error {
	for _, root := range roots {
		if err := w.watchRecursive(root, false); err != nil {
			return err
		}
	}
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string, schedule bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && w.filter.ExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if !w.filter.IncludeFile(path) {
			return nil
		}
		if schedule {
			w.scheduleChange(path)
		} else {
			w.remember(path)
		}
		return nil
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

			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.filter.ExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name, true); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.filter.IncludeFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if !w.queued[path] {
		w.queued[path] = true
		w.pending = append(w.pending, path)
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := w.pending
	w.pending = nil
	w.queued = make(map[string]bool)
	w.pendingMu.Unlock()

	changed := make([]string, 0, len(paths))
	for _, path := range paths {
		if w.contentChanged(path) {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 {
		return
	}

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(changed)
}

// contentChanged updates the stored hash for path and reports whether the
// content differs from the previous observation. Unreadable files count as
// changed once, then are forgotten.
func (w *Watcher) contentChanged(path string) bool {
	data, err := os.ReadFile(path)

	w.hashMu.Lock()
	defer w.hashMu.Unlock()

	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("watched file unreadable", "path", path, "error", err)
		}
		_, known := w.hashes[path]
		delete(w.hashes, path)
		return known || errors.Is(err, fs.ErrNotExist)
	}

	sum := xxh3.Hash(data)
	prev, known := w.hashes[path]
	w.hashes[path] = sum
	return !known || prev != sum
}

func (w *Watcher) remember(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.hashMu.Lock()
	w.hashes[path] = xxh3.Hash(data)
	w.hashMu.Unlock()
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
