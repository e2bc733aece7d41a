package changeset

import (
	"sync"
	"time"

	"github.com/opencode-ai/chatcore/internal/event"
	"github.com/opencode-ai/chatcore/internal/logging"
)

// Source supplies the change-sets of the active conversation path.
type Source interface {
	// ActiveChangeSets returns the change-sets ordered root to tip. Requests
	// without a change-set may contribute nil.
	ActiveChangeSets() []*ChangeSet
}

// SourceFunc adapts a function to Source.
type SourceFunc func() []*ChangeSet

// ActiveChangeSets implements Source.
func (f SourceFunc) ActiveChangeSets() []*ChangeSet { return f() }

// TreeChangeSet is the derived, de-duplicated view of every change-set on the
// active path. It never mutates its sources.
type TreeChangeSet struct {
	src       Source
	debouncer *Debouncer

	mu       sync.Mutex
	local    *ChangeSet
	adopted  bool
	visible  []Element
	tracked  map[*ChangeSet]func()
	disposed bool

	// serializes recomputes coming from the timer and from Flush
	recomputeMu sync.Mutex

	onChange event.Emitter[[]Element]
}

// NewTree creates an aggregator over src that recomputes wait after the last
// upstream change.
func NewTree(src Source, wait time.Duration) *TreeChangeSet {
	t := &TreeChangeSet{
		src:     src,
		local:   New("local"),
		tracked: make(map[*ChangeSet]func()),
	}
	t.debouncer = NewDebouncer(wait, t.recompute)
	t.Track(t.local)
	return t
}

// Local returns the synthetic change-set that collects edits proposed before
// any request exists. It returns nil once adopted.
func (t *TreeChangeSet) Local() *ChangeSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adopted {
		return nil
	}
	return t.local
}

// AdoptLocal hands the synthetic change-set to the first request registered
// afterwards. Later calls return nil.
func (t *TreeChangeSet) AdoptLocal() *ChangeSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adopted {
		return nil
	}
	t.adopted = true
	return t.local
}

// Track subscribes to cs so that its mutations schedule a recompute.
func (t *TreeChangeSet) Track(cs *ChangeSet) {
	if cs == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	if _, ok := t.tracked[cs]; ok {
		return
	}
	t.tracked[cs] = cs.OnDidChange(func(*ChangeSet) { t.Schedule() })
}

// Untrack stops listening to cs.
func (t *TreeChangeSet) Untrack(cs *ChangeSet) {
	t.mu.Lock()
	unsubscribe, ok := t.tracked[cs]
	delete(t.tracked, cs)
	t.mu.Unlock()

	if ok {
		unsubscribe()
	}
}

// Schedule requests a debounced recompute.
func (t *TreeChangeSet) Schedule() {
	t.debouncer.Trigger()
}

// Flush runs a pending recompute now.
func (t *TreeChangeSet) Flush() {
	t.debouncer.Flush()
}

// Elements returns the materialized visible elements.
func (t *TreeChangeSet) Elements() []Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Element(nil), t.visible...)
}

// GetElementByURI searches the materialized view only; it does not reflect
// changes still inside the debounce window.
func (t *TreeChangeSet) GetElementByURI(uri string) (Element, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, el := range t.visible {
		if el.URI() == uri {
			return el, true
		}
	}
	return nil, false
}

// OnDidChange registers a handler receiving the new visible list after each
// recompute.
func (t *TreeChangeSet) OnDidChange(fn func([]Element)) func() {
	return t.onChange.On(fn)
}

// Dispose stops the debouncer and drops all subscriptions. Visible elements
// are hidden but not disposed; their change-sets own them.
func (t *TreeChangeSet) Dispose() {
	t.debouncer.Stop()

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	subs := t.tracked
	t.tracked = nil
	visible := t.visible
	t.visible = nil
	t.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
	for _, el := range visible {
		el.OnHide()
	}
	t.onChange.Dispose()
}

func (t *TreeChangeSet) recompute() {
	t.recomputeMu.Lock()
	defer t.recomputeMu.Unlock()

	rootToTip := t.src.ActiveChangeSets()

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	if !t.adopted {
		rootToTip = append([]*ChangeSet{t.local}, rootToTip...)
	}
	t.mu.Unlock()

	tipToRoot := make([]*ChangeSet, len(rootToTip))
	for i, cs := range rootToTip {
		tipToRoot[len(rootToTip)-1-i] = cs
	}
	next := Combine(tipToRoot...)

	t.mu.Lock()
	prev := t.visible
	t.visible = next
	t.mu.Unlock()

	inNext := make(map[Element]bool, len(next))
	for _, el := range next {
		inNext[el] = true
	}
	inPrev := make(map[Element]bool, len(prev))
	for _, el := range prev {
		inPrev[el] = true
		if !inNext[el] {
			el.OnHide()
		}
	}
	for _, el := range next {
		if !inPrev[el] {
			el.OnShow()
		}
	}

	logging.Component("changeset").Debug().
		Int("visible", len(next)).
		Int("sources", len(rootToTip)).
		Msg("change-set view recomputed")

	t.onChange.Emit(append([]Element(nil), next...))
}
