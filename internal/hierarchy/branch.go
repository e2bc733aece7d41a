package hierarchy

import "fmt"

// BranchItem is one alternative at a hierarchy position.
type BranchItem[T Item] struct {
	element T
	next    *Branch[T]
}

// Element returns the wrapped item.
func (i *BranchItem[T]) Element() T {
	return i.element
}

// Next returns the branch that continues after this alternative, or nil.
func (i *BranchItem[T]) Next() *Branch[T] {
	return i.next
}

// Branch holds the alternatives for one position and the active index.
// The active index is -1 exactly when the branch is empty.
type Branch[T Item] struct {
	id     string
	h      *Hierarchy[T]
	items  []*BranchItem[T]
	active int
}

// ID returns the branch identifier.
func (b *Branch[T]) ID() string {
	return b.id
}

// Items returns a snapshot of the branch items.
func (b *Branch[T]) Items() []*BranchItem[T] {
	b.h.mu.RLock()
	defer b.h.mu.RUnlock()

	out := make([]*BranchItem[T], len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of alternatives.
func (b *Branch[T]) Len() int {
	b.h.mu.RLock()
	defer b.h.mu.RUnlock()
	return len(b.items)
}

// ActiveIndex returns the active index, -1 for an empty branch.
func (b *Branch[T]) ActiveIndex() int {
	b.h.mu.RLock()
	defer b.h.mu.RUnlock()
	return b.active
}

// Get returns the active element.
func (b *Branch[T]) Get() (T, error) {
	b.h.mu.RLock()
	defer b.h.mu.RUnlock()

	if len(b.items) == 0 {
		var zero T
		return zero, ErrEmptyBranch
	}
	return b.items[b.active].element, nil
}

// Next returns the branch continuing after the active item, or nil.
func (b *Branch[T]) Next() *Branch[T] {
	b.h.mu.RLock()
	defer b.h.mu.RUnlock()
	return b.nextLocked()
}

func (b *Branch[T]) nextLocked() *Branch[T] {
	if len(b.items) == 0 {
		return nil
	}
	return b.items[b.active].next
}

// Add appends el as a new alternative and makes it active.
func (b *Branch[T]) Add(el T) {
	b.h.mu.Lock()
	_, item := b.addLocked(el)
	b.h.mu.Unlock()

	b.h.notify(b, item)
}

func (b *Branch[T]) addLocked(el T) (*Branch[T], *BranchItem[T]) {
	item := &BranchItem[T]{element: el}
	b.items = append(b.items, item)
	b.active = len(b.items) - 1
	return b, item
}

// Continue creates a new branch holding el as its sole, active item and wires
// it as the continuation of this branch's active item, replacing any previous
// continuation. It fails on an empty branch.
func (b *Branch[T]) Continue(el T) (*Branch[T], error) {
	b.h.mu.Lock()
	child, item, err := b.continueLocked(el)
	b.h.mu.Unlock()

	if err != nil {
		return nil, err
	}
	b.h.notify(child, item)
	return child, nil
}

func (b *Branch[T]) continueLocked(el T) (*Branch[T], *BranchItem[T], error) {
	if len(b.items) == 0 {
		return nil, nil, fmt.Errorf("no current branch to continue from: %w", ErrEmptyBranch)
	}
	child := b.h.newBranch()
	_, item := child.addLocked(el)
	b.items[b.active].next = child
	return child, item, nil
}

// Remove removes the alternative holding el. It reports whether anything was
// removed.
func (b *Branch[T]) Remove(el T) bool {
	return b.RemoveByID(el.ID())
}

// RemoveByID removes the alternative whose element has id. When the removed
// index is at or before the active index the active index moves one step
// left, clamped to the remaining items.
func (b *Branch[T]) RemoveByID(id string) bool {
	b.h.mu.Lock()
	idx := b.indexLocked(id)
	if idx < 0 {
		b.h.mu.Unlock()
		return false
	}

	b.items = append(b.items[:idx:idx], b.items[idx+1:]...)
	prev := b.active
	if idx <= b.active {
		b.active--
	}
	switch {
	case len(b.items) == 0:
		b.active = -1
	case b.active < 0:
		b.active = 0
	case b.active >= len(b.items):
		b.active = len(b.items) - 1
	}

	var item *BranchItem[T]
	if b.active >= 0 {
		item = b.items[b.active]
	}
	changed := prev != b.active || idx == prev
	b.h.mu.Unlock()

	if changed {
		b.h.notify(b, item)
	}
	return true
}

// Enable makes the alternative holding el active.
func (b *Branch[T]) Enable(el T) error {
	b.h.mu.Lock()
	idx := b.indexLocked(el.ID())
	if idx < 0 {
		b.h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, el.ID())
	}
	b.active = idx
	item := b.items[idx]
	b.h.mu.Unlock()

	b.h.notify(b, item)
	return nil
}

// EnablePrevious moves the active index one step left. It is a no-op at the
// first item and reports whether the index moved.
func (b *Branch[T]) EnablePrevious() bool {
	return b.step(-1)
}

// EnableNext moves the active index one step right. It is a no-op at the last
// item and reports whether the index moved.
func (b *Branch[T]) EnableNext() bool {
	return b.step(1)
}

func (b *Branch[T]) step(delta int) bool {
	b.h.mu.Lock()
	target := b.active + delta
	if len(b.items) == 0 || target < 0 || target >= len(b.items) {
		b.h.mu.Unlock()
		return false
	}
	b.active = target
	item := b.items[target]
	b.h.mu.Unlock()

	b.h.notify(b, item)
	return true
}

func (b *Branch[T]) indexLocked(id string) int {
	for i, item := range b.items {
		if item.element.ID() == id {
			return i
		}
	}
	return -1
}

// find performs a depth-first search over every item and every item's
// continuation, not only the active ones.
func (b *Branch[T]) find(id string) (*Branch[T], *BranchItem[T]) {
	for _, item := range b.items {
		if item.element.ID() == id {
			return b, item
		}
		if item.next != nil {
			if found, fi := item.next.find(id); found != nil {
				return found, fi
			}
		}
	}
	return nil, nil
}
