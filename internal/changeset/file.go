package changeset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Opener shows an element to the user, typically as a diff view.
type Opener func(ctx context.Context, el *FileElement) error

// FileOption configures a FileElement.
type FileOption func(*FileElement)

// WithDelete makes the element propose deleting the file.
func WithDelete() FileOption {
	return func(e *FileElement) { e.typ = TypeDelete }
}

// WithOpener sets the handler used by Open.
func WithOpener(fn Opener) FileOption {
	return func(e *FileElement) { e.opener = fn }
}

// WithWatcher registers the element with w while it is visible.
func WithWatcher(w *Watcher) FileOption {
	return func(e *FileElement) { e.watcher = w }
}

// WithName sets the display name. The base name of the path is used
// otherwise.
func WithName(name string) FileOption {
	return func(e *FileElement) { e.name = name }
}

// FileElement proposes writing target content to a path on an afero file
// system. The content found on disk at creation time is kept for Revert.
type FileElement struct {
	fs      afero.Fs
	path    string
	opener  Opener
	watcher *Watcher

	mu       sync.Mutex
	name     string
	typ      Type
	existed  bool
	original string
	target   string
	state    State
	listener func()
	disposed bool
}

// NewFileElement snapshots the current content at path and proposes target.
func NewFileElement(fs afero.Fs, path, target string, opts ...FileOption) (*FileElement, error) {
	e := &FileElement{
		fs:     fs,
		path:   filepath.Clean(path),
		target: target,
		state:  StatePending,
		typ:    TypeModify,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.name == "" {
		e.name = filepath.Base(e.path)
	}

	data, err := afero.ReadFile(fs, e.path)
	switch {
	case err == nil:
		e.existed = true
		e.original = string(data)
	case errors.Is(err, os.ErrNotExist):
		if e.typ == TypeDelete {
			return nil, fmt.Errorf("cannot delete %s: %w", e.path, err)
		}
		e.typ = TypeAdd
	default:
		return nil, fmt.Errorf("failed to read %s: %w", e.path, err)
	}
	if e.typ == TypeDelete {
		e.target = ""
	}
	return e, nil
}

// URI returns the file URI of the element.
func (e *FileElement) URI() string { return "file://" + filepath.ToSlash(e.path) }

// Path returns the file path on the element's file system.
func (e *FileElement) Path() string { return e.path }

// Name returns the display name, the file base name by default.
func (e *FileElement) Name() string { return e.name }
func (e *FileElement) Icon() string { return "" }

// State returns the element state.
func (e *FileElement) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Type reports whether the file is added, modified or deleted.
func (e *FileElement) Type() Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typ
}

// Original returns the content snapshotted at creation.
func (e *FileElement) Original() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.original
}

// Target returns the proposed content.
func (e *FileElement) Target() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// SetTarget replaces the proposed content, e.g. while edits are still
// streaming in. A stale element becomes pending again.
func (e *FileElement) SetTarget(target string) {
	e.mu.Lock()
	e.target = target
	changed := e.state == StateStale
	if changed {
		e.state = StatePending
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

// DiffStats compares the original and target content.
func (e *FileElement) DiffStats() Diff {
	e.mu.Lock()
	defer e.mu.Unlock()
	return buildDiff(e.path, e.original, e.target)
}

// Open hands the element to the configured opener.
func (e *FileElement) Open(ctx context.Context) error {
	if e.opener == nil {
		return nil
	}
	return e.opener(ctx, e)
}

// Apply writes the target content, or removes the file for deletions.
func (e *FileElement) Apply(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.state == StateApplied {
		e.mu.Unlock()
		return nil
	}
	typ, target := e.typ, e.target
	e.mu.Unlock()

	var err error
	if typ == TypeDelete {
		err = e.fs.Remove(e.path)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	} else {
		err = e.write(target)
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", e.path, err)
	}

	e.setState(StateApplied)
	return nil
}

// Revert restores the content snapshotted at creation. Reverting an element
// that was never applied does nothing.
func (e *FileElement) Revert(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.state != StateApplied {
		e.mu.Unlock()
		return nil
	}
	existed, original := e.existed, e.original
	e.mu.Unlock()

	var err error
	if existed {
		err = e.write(original)
	} else {
		err = e.fs.Remove(e.path)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to revert %s: %w", e.path, err)
	}

	e.setState(StatePending)
	return nil
}

// MarkStale moves a pending element to stale.
func (e *FileElement) MarkStale() bool {
	e.mu.Lock()
	if e.state != StatePending {
		e.mu.Unlock()
		return false
	}
	e.state = StateStale
	e.mu.Unlock()

	e.notify()
	return true
}

// CheckStale marks the element stale when the file on disk no longer matches
// the snapshotted original.
func (e *FileElement) CheckStale() bool {
	data, err := afero.ReadFile(e.fs, e.path)
	exists := err == nil

	e.mu.Lock()
	drifted := exists != e.existed || (exists && string(data) != e.original)
	e.mu.Unlock()

	if !drifted {
		return false
	}
	return e.MarkStale()
}

// OnShow starts watching the file for stale detection.
func (e *FileElement) OnShow() {
	if e.watcher == nil {
		return
	}
	e.watcher.Track(e)
	e.CheckStale()
}

// OnHide stops watching the file.
func (e *FileElement) OnHide() {
	if e.watcher != nil {
		e.watcher.Untrack(e)
	}
}

// Dispose stops watching and drops state listeners.
func (e *FileElement) Dispose() {
	e.mu.Lock()
	e.disposed = true
	e.listener = nil
	e.mu.Unlock()

	if e.watcher != nil {
		e.watcher.Untrack(e)
	}
}

func (e *FileElement) setStateListener(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

func (e *FileElement) setState(s State) {
	e.mu.Lock()
	changed := e.state != s
	e.state = s
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

func (e *FileElement) notify() {
	e.mu.Lock()
	fn := e.listener
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (e *FileElement) write(content string) error {
	if err := e.fs.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(e.fs, e.path, []byte(content), 0o644)
}
