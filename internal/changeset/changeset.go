package changeset

import (
	"sync"

	"github.com/opencode-ai/chatcore/internal/event"
)

// ContentChange describes which URIs a mutation touched.
type ContentChange struct {
	Added     []string
	Removed   []string
	Modified  []string
	StateOnly []string
}

// Empty reports whether the change touched nothing.
func (c ContentChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0 && len(c.StateOnly) == 0
}

// Entry is one URI slot of a change-set. A nil Element is a tombstone: the URI
// is deleted within this overlay and hides root-ward definitions.
type Entry struct {
	URI     string
	Element Element
}

// ChangeSet is a URI-keyed set of elements owned by one request.
type ChangeSet struct {
	mu      sync.Mutex
	title   string
	entries map[string]Element
	order   []string

	onChange  event.Emitter[*ChangeSet]
	onContent event.Emitter[ContentChange]
}

// New creates an empty change-set.
func New(title string) *ChangeSet {
	return &ChangeSet{
		title:   title,
		entries: make(map[string]Element),
	}
}

// Title returns the display title.
func (cs *ChangeSet) Title() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.title
}

// SetTitle changes the display title and notifies update listeners.
func (cs *ChangeSet) SetTitle(title string) {
	cs.mu.Lock()
	changed := cs.title != title
	cs.title = title
	cs.mu.Unlock()

	if changed {
		cs.onChange.Emit(cs)
	}
}

// OnDidChange registers a handler called after every mutation with the
// change-set itself, for consumers that re-render the whole list.
func (cs *ChangeSet) OnDidChange(fn func(*ChangeSet)) func() {
	return cs.onChange.On(fn)
}

// OnDidChangeContent registers a handler for the URIs touched by a mutation.
func (cs *ChangeSet) OnDidChangeContent(fn func(ContentChange)) func() {
	return cs.onContent.On(fn)
}

// AddElements inserts elements, replacing any entry with the same URI. It
// reports whether anything changed.
func (cs *ChangeSet) AddElements(elements ...Element) bool {
	cs.mu.Lock()
	var change ContentChange
	for _, el := range elements {
		uri := el.URI()
		existing, ok := cs.entries[uri]
		if ok && existing == el {
			continue
		}
		if !ok {
			cs.order = append(cs.order, uri)
		}
		cs.entries[uri] = el
		cs.attach(el)
		if ok && existing != nil {
			change.Modified = append(change.Modified, uri)
		} else {
			change.Added = append(change.Added, uri)
		}
	}
	cs.mu.Unlock()

	if change.Empty() {
		return false
	}
	cs.emit(change)
	return true
}

// SetElements replaces the whole content. Listeners are always notified.
func (cs *ChangeSet) SetElements(elements ...Element) {
	cs.mu.Lock()
	next := make(map[string]Element, len(elements))
	var order []string
	for _, el := range elements {
		if _, dup := next[el.URI()]; !dup {
			order = append(order, el.URI())
		}
		next[el.URI()] = el
	}

	var change ContentChange
	for _, uri := range cs.order {
		if _, ok := next[uri]; !ok {
			change.Removed = append(change.Removed, uri)
		}
	}
	for _, uri := range order {
		el := next[uri]
		cs.attach(el)
		old, ok := cs.entries[uri]
		switch {
		case !ok || old == nil:
			change.Added = append(change.Added, uri)
		case old != el:
			change.Modified = append(change.Modified, uri)
		}
	}
	cs.entries = next
	cs.order = order
	cs.mu.Unlock()

	cs.emit(change)
}

// RemoveElements marks the URIs as deleted within this change-set. It reports
// whether any removal had an effect.
func (cs *ChangeSet) RemoveElements(uris ...string) bool {
	cs.mu.Lock()
	var change ContentChange
	for _, uri := range uris {
		existing, ok := cs.entries[uri]
		if ok && existing == nil {
			continue
		}
		if !ok {
			cs.order = append(cs.order, uri)
		}
		cs.entries[uri] = nil
		change.Removed = append(change.Removed, uri)
	}
	cs.mu.Unlock()

	if change.Empty() {
		return false
	}
	cs.emit(change)
	return true
}

// NotifyStateChange reports that the element at uri changed state only.
func (cs *ChangeSet) NotifyStateChange(uri string) {
	cs.mu.Lock()
	el, ok := cs.entries[uri]
	cs.mu.Unlock()
	if !ok || el == nil {
		return
	}
	cs.emit(ContentChange{StateOnly: []string{uri}})
}

// GetElementByURI returns the live element at uri. Tombstones are not
// returned.
func (cs *ChangeSet) GetElementByURI(uri string) (Element, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	el, ok := cs.entries[uri]
	if !ok || el == nil {
		return nil, false
	}
	return el, true
}

// Elements returns the live elements.
func (cs *ChangeSet) Elements() []Element {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([]Element, 0, len(cs.order))
	for _, uri := range cs.order {
		if el := cs.entries[uri]; el != nil {
			out = append(out, el)
		}
	}
	return out
}

// Entries returns every URI slot including tombstones.
func (cs *ChangeSet) Entries() []Entry {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([]Entry, 0, len(cs.order))
	for _, uri := range cs.order {
		out = append(out, Entry{URI: uri, Element: cs.entries[uri]})
	}
	return out
}

// Len returns the number of live elements.
func (cs *ChangeSet) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	n := 0
	for _, el := range cs.entries {
		if el != nil {
			n++
		}
	}
	return n
}

// Dispose disposes every live element and drops all listeners.
func (cs *ChangeSet) Dispose() {
	cs.mu.Lock()
	var live []Element
	for _, uri := range cs.order {
		if el := cs.entries[uri]; el != nil {
			live = append(live, el)
		}
	}
	cs.mu.Unlock()

	for _, el := range live {
		el.Dispose()
	}
	cs.onChange.Dispose()
	cs.onContent.Dispose()
}

func (cs *ChangeSet) attach(el Element) {
	if n, ok := el.(stateNotifier); ok {
		uri := el.URI()
		n.setStateListener(func() { cs.NotifyStateChange(uri) })
	}
}

func (cs *ChangeSet) emit(change ContentChange) {
	cs.onContent.Emit(change)
	cs.onChange.Emit(cs)
}
