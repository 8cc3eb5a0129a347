// Package watcher reports changes to individual files, debounced.
//
// Files are watched through their parent directory so that editors which
// save by writing a temporary file and renaming it over the original are
// still seen. When fsnotify is unavailable the watcher falls back to
// polling file metadata.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned by operations on a closed Watcher.
var ErrClosed = errors.New("watcher: closed")

// DefaultPollInterval is used by the polling fallback.
const DefaultPollInterval = time.Second

// Handler receives the path of a file that changed. Several changes inside
// one debounce window are reported once.
type Handler func(path string)

// ErrorHandler receives errors from the underlying watch.
type ErrorHandler func(err error)

// fileState is what the polling fallback compares.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// Watcher watches a set of files.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	handler   Handler
	onError   ErrorHandler

	poll         bool
	pollInterval time.Duration
	done         chan struct{}

	mu      sync.Mutex
	files   map[string]fileState
	dirs    map[string]int
	pending map[string]struct{}
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debouncer = NewDebouncer(d)
		}
	}
}

// WithErrorHandler sets the error callback.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Watcher) {
		w.onError = h
	}
}

// WithPolling forces the polling fallback at the given interval.
func WithPolling(interval time.Duration) Option {
	return func(w *Watcher) {
		w.poll = true
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// New starts a watcher that reports changes to handler.
func New(handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: nil handler")
	}
	w := &Watcher{
		debouncer:    NewDebouncer(DefaultDebounce),
		handler:      handler,
		pollInterval: DefaultPollInterval,
		done:         make(chan struct{}),
		files:        make(map[string]fileState),
		dirs:         make(map[string]int),
		pending:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if !w.poll {
		fs, err := fsnotify.NewWatcher()
		if err != nil {
			w.report(fmt.Errorf("fsnotify unavailable, polling instead: %w", err))
			w.poll = true
		} else {
			w.fs = fs
		}
	}

	if w.poll {
		go w.runPoll()
	} else {
		go w.run()
	}
	return w, nil
}

// Add starts watching path. The file does not have to exist yet, but its
// directory does.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, ok := w.files[abs]; ok {
		return nil
	}

	if !w.poll {
		dir := filepath.Dir(abs)
		if w.dirs[dir] == 0 {
			if err := w.fs.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
		}
		w.dirs[dir]++
	}
	w.files[abs] = stat(abs)
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, ok := w.files[abs]; !ok {
		return nil
	}
	delete(w.files, abs)

	if !w.poll {
		dir := filepath.Dir(abs)
		w.dirs[dir]--
		if w.dirs[dir] <= 0 {
			delete(w.dirs, dir)
			return w.fs.Remove(dir)
		}
	}
	return nil
}

// Files returns the watched paths, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Polling reports whether the polling fallback is in use.
func (w *Watcher) Polling() bool {
	return w.poll
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.debouncer.Cancel()
	close(w.done)
	if w.fs != nil {
		return w.fs.Close()
	}
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.changed(filepath.Clean(ev.Name))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) runPoll() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

func (w *Watcher) pollOnce() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	for _, p := range paths {
		now := stat(p)
		w.mu.Lock()
		prev, ok := w.files[p]
		if ok && now != prev {
			w.files[p] = now
		}
		w.mu.Unlock()
		if ok && now != prev {
			w.changed(p)
		}
	}
}

// changed records a change to path and (re)arms the debouncer.
func (w *Watcher) changed(path string) {
	w.mu.Lock()
	if _, ok := w.files[path]; !ok || w.closed {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.debouncer.Trigger(w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(paths)
	for _, p := range paths {
		w.handler(p)
	}
}

func (w *Watcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
