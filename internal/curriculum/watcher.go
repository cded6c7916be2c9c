package curriculum

import (
	"crypto/sha256"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors the lessons file for changes and reloads the store when
// the file is modified. It uses polling (not fsnotify) to keep dependencies
// minimal.
type Watcher struct {
	store    *Store
	interval time.Duration

	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a lessons file watcher for store and starts polling in
// a background goroutine. The store's current table is left untouched until
// the file actually changes.
func NewWatcher(store *Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		interval: 5 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	// Seed change detection with the current file state; errors here just
	// mean the first poll will treat the file as changed.
	if hash, mtime, err := w.hashFile(); err == nil {
		w.lastHash = hash
		w.lastMtime = mtime
	}

	go w.poll()
	return w
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking the lessons file periodically.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check compares the lessons file against the last observed state and
// triggers a store reload when it has changed. A failed reload keeps the
// old table serving (see [Store.Reload]) and leaves the recorded state
// unchanged so the next successful write is still picked up.
func (w *Watcher) check() {
	// Quick mtime check first to avoid hashing unchanged files.
	fi, err := os.Stat(w.store.path)
	if err != nil {
		slog.Debug("curriculum: watcher stat failed", "path", w.store.path, "err", err)
		return
	}
	if fi.ModTime().Equal(w.lastMtime) {
		return
	}

	hash, mtime, err := w.hashFile()
	if err != nil {
		slog.Debug("curriculum: watcher hash failed", "path", w.store.path, "err", err)
		return
	}
	if hash == w.lastHash {
		w.lastMtime = mtime
		return
	}

	if w.store.Reload() {
		w.lastHash = hash
		w.lastMtime = mtime
	}
}

// hashFile returns the SHA-256 of the lessons file contents and its mtime.
func (w *Watcher) hashFile() ([sha256.Size]byte, time.Time, error) {
	var zero [sha256.Size]byte

	f, err := os.Open(w.store.path)
	if err != nil {
		return zero, time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return zero, time.Time{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return zero, time.Time{}, err
	}

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum, fi.ModTime(), nil
}
