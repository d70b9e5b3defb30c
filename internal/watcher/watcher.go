// Package watcher observes a repository tree and emits debounced change
// batches. Rapid editor save bursts coalesce into a single batch so the
// consumer re-indexes once, not once per write.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/repowhisper/repowhisper/internal/discover"
)

// DefaultDebounce is the quiet period before a batch is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree for changes.
type Watcher struct {
	root     string
	debounce time.Duration

	fsw     *fsnotify.Watcher
	batches chan []string
}

// New creates a watcher for the tree rooted at root.
func New(root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		fsw:      fsw,
		batches:  make(chan []string, 1),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive watches root and every non-excluded subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && discover.ExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Batches returns the channel of debounced change batches. Each batch
// is a deduplicated list of changed file paths.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Run processes events until the context is cancelled. It must be
// called exactly once; Batches is closed when it returns.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.batches)

	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		pending = make(map[string]bool)

		select {
		case w.batches <- batch:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}

			// New directories need their own watch
			if event.Op.Has(fsnotify.Create) {
				if err := w.addRecursive(event.Name); err != nil {
					slog.Warn("cannot watch new path", "path", event.Name, "error", err)
				}
			}

			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

// relevant filters events down to content changes on non-excluded paths.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if discover.ExcludedDir(seg) {
			return false
		}
	}
	return true
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
