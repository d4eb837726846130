// Package watch reports changes to syncable files under a source tree.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType is the kind of change seen on a file.
type EventType string

const (
	EventCreate EventType = "create"
	EventWrite  EventType = "write"
	EventRemove EventType = "remove"
	EventRename EventType = "rename"
)

// Event is a debounced change to one file.
type Event struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Config holds watcher settings.
type Config struct {
	Debounce    time.Duration
	BufferSize  int
	Extensions  []string
	ExcludeDirs []string
}

// DefaultConfig returns the watcher defaults.
func DefaultConfig() Config {
	return Config{
		Debounce:    500 * time.Millisecond,
		BufferSize:  100,
		Extensions:  []string{".md", ".txt"},
		ExcludeDirs: []string{".git", "node_modules"},
	}
}

// Watcher monitors a source tree recursively. Events for the same path
// are coalesced until the path has been quiet for the debounce window.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	config     Config
	extensions map[string]bool
	exclude    map[string]bool
	events     chan Event
	errors     chan error

	pending   map[string]Event
	pendingMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// New creates a watcher. Zero-valued config fields take their defaults.
func New(cfg Config) (*Watcher, error) {
	defaults := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaults.Debounce
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = defaults.Extensions
	}
	if cfg.ExcludeDirs == nil {
		cfg.ExcludeDirs = defaults.ExcludeDirs
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsWatcher:  fsWatcher,
		config:     cfg,
		extensions: lowerSet(cfg.Extensions),
		exclude:    lowerSet(cfg.ExcludeDirs),
		events:     make(chan Event, cfg.BufferSize),
		errors:     make(chan error, cfg.BufferSize),
		pending:    make(map[string]Event),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}

// Watch adds root and every non-excluded directory below it, then starts
// delivering events. Directories created later are added as they appear.
func (w *Watcher) Watch(root string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.addTree(root); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.debounceProcessor()
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.exclude[strings.ToLower(d.Name())] {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Events returns debounced file events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	close(w.events)
	close(w.errors)
	return err
}

// Accepts reports whether path has a watched extension.
func (w *Watcher) Accepts(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.exclude[strings.ToLower(filepath.Base(event.Name))] {
				return
			}
			if err := w.addTree(event.Name); err != nil {
				w.sendError(err)
			}
			return
		}
	}

	if !w.Accepts(event.Name) {
		return
	}
	eventType := convertEventType(event.Op)
	if eventType == "" {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = Event{Path: event.Name, Type: eventType, Timestamp: time.Now()}
	w.pendingMu.Unlock()
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) debounceProcessor() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.emitStable(time.Now())
		}
	}
}

// emitStable sends every pending event older than the debounce window,
// ordered by path. Events that do not fit in the buffer stay pending and
// are retried on the next tick.
func (w *Watcher) emitStable(now time.Time) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	stable := make([]string, 0, len(w.pending))
	for path, ev := range w.pending {
		if now.Sub(ev.Timestamp) >= w.config.Debounce {
			stable = append(stable, path)
		}
	}
	sort.Strings(stable)

	for _, path := range stable {
		select {
		case w.events <- w.pending[path]:
			delete(w.pending, path)
		default:
			return
		}
	}
}

func convertEventType(op fsnotify.Op) EventType {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return EventCreate
	case op&fsnotify.Write == fsnotify.Write:
		return EventWrite
	case op&fsnotify.Remove == fsnotify.Remove:
		return EventRemove
	case op&fsnotify.Rename == fsnotify.Rename:
		return EventRename
	default:
		return ""
	}
}

// Batch collects events until the channel has been idle for quiet, then
// returns the distinct paths that still exist. It returns nil when ctx is
// done or the channel is closed with nothing collected.
func Batch(ctx context.Context, events <-chan Event, quiet time.Duration) []string {
	seen := make(map[string]bool)

	select {
	case <-ctx.Done():
		return nil
	case ev, ok := <-events:
		if !ok {
			return nil
		}
		seen[ev.Path] = true
	}

	timer := time.NewTimer(quiet)
	defer timer.Stop()

collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case ev, ok := <-events:
			if !ok {
				break collect
			}
			seen[ev.Path] = true
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
		case <-timer.C:
			break collect
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
