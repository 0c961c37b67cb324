// Package watcher reports debounced changes to a set of watched files.
package watcher

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Op is the kind of change seen on a file.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// FileEvent is the last change seen on one file within a debounce window.
type FileEvent struct {
	Path      string    `json:"path"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// FileEventHandler receives one batch per quiet period, sorted by path.
// Batches are delivered one at a time from the watcher goroutine.
type FileEventHandler func(events []FileEvent)

// Config holds watcher configuration.
type Config struct {
	// DebounceDelay is the quiet period after the last event before a batch
	// is delivered.
	DebounceDelay time.Duration
	// MaxBatchSize forces delivery once this many distinct files changed.
	MaxBatchSize int
}

// DefaultConfig returns default watcher configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 500 * time.Millisecond,
		MaxBatchSize:  100,
	}
}

// Watcher monitors individual files. Editors often save by writing a temp
// file and renaming it over the original, which drops a watch placed on the
// file itself, so the parent directory is watched and events are filtered
// down to the registered files.
type Watcher struct {
	fs      *fsnotify.Watcher
	config  Config
	logger  zerolog.Logger
	handler FileEventHandler

	mu    sync.RWMutex
	files map[string]struct{}
	dirs  map[string]int // watched directory -> registered files in it

	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// New creates a watcher. Zero config fields take their defaults.
func New(config Config, logger zerolog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = def.DebounceDelay
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = def.MaxBatchSize
	}

	return &Watcher{
		fs:     fs,
		config: config,
		logger: logger.With().Str("component", "watcher").Logger(),
		files:  make(map[string]struct{}),
		dirs:   make(map[string]int),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// SetHandler sets the batch handler. Call it before Start.
func (w *Watcher) SetHandler(handler FileEventHandler) {
	w.handler = handler
}

// Start begins delivering events. Calling it again has no effect.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.started = true
		w.mu.Unlock()
		go w.run()
	})
}

// Stop delivers any pending batch, stops the watcher and releases the
// underlying inotify handles. It is safe to call without Start.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.quit)
		w.mu.RLock()
		started := w.started
		w.mu.RUnlock()
		if started {
			<-w.done
		}
		err = w.fs.Close()
	})
	return err
}

// AddFile starts reporting events for path.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = struct{}{}

	w.logger.Info().Str("path", abs).Msg("Watching file")
	return nil
}

// RemoveFile stops reporting events for path. The parent directory watch is
// dropped with its last registered file.
func (w *Watcher) RemoveFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; !ok {
		return nil
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	if w.dirs[dir]--; w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fs.Remove(dir)
	}
	return nil
}

// WatchedFiles returns the registered files, sorted.
func (w *Watcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// run owns the pending batch; nothing else touches it.
func (w *Watcher) run() {
	defer close(w.done)

	pending := make(map[string]FileEvent)
	errs := w.fs.Errors
	timer := time.NewTimer(w.config.DebounceDelay)
	timer.Stop()

	flush := func() {
		timer.Stop()
		if len(pending) == 0 {
			return
		}
		batch := make([]FileEvent, 0, len(pending))
		for _, e := range pending {
			batch = append(batch, e)
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		clear(pending)

		w.logger.Debug().Int("count", len(batch)).Msg("Delivering file events")
		if w.handler != nil {
			w.handler(batch)
		}
	}

	for {
		select {
		case <-w.quit:
			flush()
			return

		case <-timer.C:
			flush()

		case ev, ok := <-w.fs.Events:
			if !ok {
				flush()
				return
			}
			e, keep := w.translate(ev)
			if !keep {
				continue
			}
			// Bursts on one file collapse to the latest change.
			pending[e.Path] = e
			if len(pending) >= w.config.MaxBatchSize {
				flush()
				continue
			}
			timer.Reset(w.config.DebounceDelay)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// translate maps a directory event onto a registered file.
func (w *Watcher) translate(ev fsnotify.Event) (FileEvent, bool) {
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return FileEvent{}, false
	}
	w.mu.RLock()
	_, watched := w.files[abs]
	w.mu.RUnlock()
	if !watched {
		return FileEvent{}, false
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpWrite
	case ev.Has(fsnotify.Remove):
		op = OpRemove
	case ev.Has(fsnotify.Rename):
		op = OpRename
	default:
		return FileEvent{}, false
	}
	return FileEvent{Path: abs, Op: op, Timestamp: time.Now()}, true
}
