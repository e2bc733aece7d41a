package changeset

import (
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/opencode-ai/chatcore/internal/logging"
)

// Watcher marks visible file elements stale when their file changes on disk
// underneath them. It watches the parent directories of tracked elements.
type Watcher struct {
	watcher *fsnotify.Watcher
	ignore  []string
	root    string
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu       sync.Mutex
	started  bool
	elements map[string]map[*FileElement]struct{}
	dirs     map[string]int
}

// NewWatcher creates a watcher. Paths matching any of the doublestar ignore
// patterns are never tracked.
func NewWatcher(ignore ...string) (*Watcher, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, doublestar.ErrBadPattern
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		ignore:   ignore,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		elements: make(map[string]map[*FileElement]struct{}),
		dirs:     make(map[string]int),
	}, nil
}

// Start begins processing file system events.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// SetRoot tells the watcher that element paths are relative to root on the
// OS file system, as with an afero.BasePathFs rooted there. Call it before
// tracking elements.
func (w *Watcher) SetRoot(root string) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	w.mu.Lock()
	w.root = root
	w.mu.Unlock()
}

// osPath maps an element path to the path fsnotify reports.
func (w *Watcher) osPath(path string) string {
	if w.root == "" {
		return path
	}
	return filepath.Join(w.root, path)
}

// Ignored reports whether path matches an ignore pattern.
func (w *Watcher) Ignored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range w.ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// Track starts watching the element's file.
func (w *Watcher) Track(el *FileElement) {
	if w.Ignored(el.Path()) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	path := w.osPath(el.Path())

	set, ok := w.elements[path]
	if !ok {
		set = make(map[*FileElement]struct{})
		w.elements[path] = set
	}
	if _, dup := set[el]; dup {
		return
	}
	set[el] = struct{}{}

	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			log := logging.Component("changeset")
			log.Debug().Err(err).Str("dir", dir).Msg("cannot watch directory")
		}
	}
	w.dirs[dir]++
}

// Untrack stops watching the element's file.
func (w *Watcher) Untrack(el *FileElement) {
	w.mu.Lock()
	defer w.mu.Unlock()
	path := w.osPath(el.Path())

	set, ok := w.elements[path]
	if !ok {
		return
	}
	if _, ok := set[el]; !ok {
		return
	}
	delete(set, el)
	if len(set) == 0 {
		delete(w.elements, path)
	}

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Tracked returns the number of tracked elements.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, set := range w.elements {
		n += len(set)
	}
	return n
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.check(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Component("changeset").Error().Err(err).Msg("change-set watcher error")
		}
	}
}

func (w *Watcher) check(path string) {
	w.mu.Lock()
	set := w.elements[path]
	targets := make([]*FileElement, 0, len(set))
	for el := range set {
		targets = append(targets, el)
	}
	w.mu.Unlock()

	for _, el := range targets {
		if el.CheckStale() {
			logging.Component("changeset").Debug().Str("path", path).Msg("element marked stale")
		}
	}
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
