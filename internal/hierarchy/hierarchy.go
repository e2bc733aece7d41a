// Package hierarchy implements the branching tree of conversation turns.
//
// A Hierarchy owns a root Branch. Each Branch holds alternative items for one
// position in the conversation plus an active index; each item may link to the
// Branch that continues the conversation after it. The active path is the walk
// from the root that follows only active items.
package hierarchy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/chatcore/internal/event"
)

var (
	// ErrEmptyBranch is returned when an operation needs an active item but
	// the branch has none.
	ErrEmptyBranch = errors.New("branch is empty")

	// ErrBranchNotFound is returned when no branch contains the requested id.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrItemNotFound is returned when a branch does not contain the item.
	ErrItemNotFound = errors.New("item not found in branch")
)

// Item is anything that can live in a hierarchy.
type Item interface {
	ID() string
}

// ChangeEvent reports that the active item of Branch changed. Item is nil
// when the branch became empty.
type ChangeEvent[T Item] struct {
	Branch *Branch[T]
	Item   *BranchItem[T]
}

// Hierarchy is a tree of alternative conversation turns.
type Hierarchy[T Item] struct {
	mu      sync.RWMutex
	root    *Branch[T]
	changes event.Emitter[ChangeEvent[T]]
}

// New creates a hierarchy with an empty root branch.
func New[T Item]() *Hierarchy[T] {
	h := &Hierarchy[T]{}
	h.root = h.newBranch()
	return h
}

func (h *Hierarchy[T]) newBranch() *Branch[T] {
	return &Branch[T]{
		id:     ulid.Make().String(),
		h:      h,
		active: -1,
	}
}

// Root returns the root branch.
func (h *Hierarchy[T]) Root() *Branch[T] {
	return h.root
}

// OnDidChange registers a handler for active-item changes on any branch.
func (h *Hierarchy[T]) OnDidChange(fn func(ChangeEvent[T])) func() {
	return h.changes.On(fn)
}

func (h *Hierarchy[T]) notify(b *Branch[T], item *BranchItem[T]) {
	h.changes.Emit(ChangeEvent[T]{Branch: b, Item: item})
}

// Append extends the active path with el. On an empty hierarchy el becomes the
// sole root item; otherwise it continues the last branch of the active path.
func (h *Hierarchy[T]) Append(el T) {
	h.mu.Lock()
	if len(h.root.items) == 0 {
		b, item := h.root.addLocked(el)
		h.mu.Unlock()
		h.notify(b, item)
		return
	}

	current := h.root
	for next := current.nextLocked(); next != nil; next = current.nextLocked() {
		current = next
	}
	b, item, err := current.continueLocked(el)
	h.mu.Unlock()

	if err != nil {
		// current was reached through the active path and is never empty.
		panic(fmt.Sprintf("hierarchy: append: %v", err))
	}
	h.notify(b, item)
}

// FindRequest searches every branch, active or not, for an item with id.
func (h *Hierarchy[T]) FindRequest(id string) (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, item := h.root.find(id)
	if item == nil {
		var zero T
		return zero, false
	}
	return item.element, true
}

// FindBranch returns the branch that holds the item with id, searching every
// branch, active or not.
func (h *Hierarchy[T]) FindBranch(id string) (*Branch[T], error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	b, _ := h.root.find(id)
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}
	return b, nil
}

// ActiveBranches walks from the root, yielding each non-empty branch and
// following only active items, and stops at the first empty branch.
func (h *Hierarchy[T]) ActiveBranches() []*Branch[T] {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var branches []*Branch[T]
	for b := h.root; b != nil && len(b.items) > 0; b = b.nextLocked() {
		branches = append(branches, b)
	}
	return branches
}

// ActiveRequests returns the active item of every active branch, root first.
func (h *Hierarchy[T]) ActiveRequests() []T {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []T
	for b := h.root; b != nil && len(b.items) > 0; b = b.nextLocked() {
		out = append(out, b.items[b.active].element)
	}
	return out
}

// Dispose drops every change handler.
func (h *Hierarchy[T]) Dispose() {
	h.changes.Dispose()
}
