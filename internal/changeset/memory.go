package changeset

import (
	"context"
	"sync"
)

// MemoryElement is an element with no backing store. Apply and Revert only
// move its state. Visibility hooks are counted.
type MemoryElement struct {
	uri     string
	name    string
	typ     Type
	Content string

	mu       sync.Mutex
	state    State
	shown    int
	hidden   int
	disposed bool
	listener func()
}

// NewMemoryElement creates a pending element.
func NewMemoryElement(uri string, typ Type, content string) *MemoryElement {
	return &MemoryElement{uri: uri, typ: typ, Content: content, state: StatePending}
}

// URI, Name, Icon and Type are fixed at construction.
func (m *MemoryElement) URI() string  { return m.uri }
func (m *MemoryElement) Name() string { return m.name }
func (m *MemoryElement) Icon() string { return "" }
func (m *MemoryElement) Type() Type   { return m.typ }

// State returns the element state.
func (m *MemoryElement) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open is a no-op for in-memory elements.
func (m *MemoryElement) Open(context.Context) error { return nil }

// Apply marks the element applied.
func (m *MemoryElement) Apply(context.Context) error {
	m.setState(StateApplied)
	return nil
}

// Revert returns the element to pending.
func (m *MemoryElement) Revert(context.Context) error {
	m.setState(StatePending)
	return nil
}

// OnShow counts the element as visible.
func (m *MemoryElement) OnShow() {
	m.mu.Lock()
	m.shown++
	m.mu.Unlock()
}

// OnHide counts the element as hidden.
func (m *MemoryElement) OnHide() {
	m.mu.Lock()
	m.hidden++
	m.mu.Unlock()
}

// Dispose marks the element disposed.
func (m *MemoryElement) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
}

// Visibility returns how many times the element was shown and hidden.
func (m *MemoryElement) Visibility() (shown, hidden int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown, m.hidden
}

// Disposed reports whether Dispose was called.
func (m *MemoryElement) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

func (m *MemoryElement) setStateListener(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

func (m *MemoryElement) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	fn := m.listener
	m.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}
