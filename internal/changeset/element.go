// Package changeset models the file edits proposed during a chat and the
// aggregated, de-duplicated view of them across the active conversation path.
package changeset

import "context"

// State is the lifecycle state of a change-set element.
type State string

const (
	StatePending State = "pending"
	StateApplied State = "applied"
	StateStale   State = "stale"
)

// Type is the kind of edit an element proposes.
type Type string

const (
	TypeAdd    Type = "add"
	TypeModify Type = "modify"
	TypeDelete Type = "delete"
)

// Element is one proposed file edit. Implementations must be pointer types:
// the aggregator diffs visible elements by identity.
type Element interface {
	URI() string
	// Name and Icon are optional display hints and may be empty.
	Name() string
	Icon() string
	State() State
	Type() Type

	Open(ctx context.Context) error
	Apply(ctx context.Context) error
	Revert(ctx context.Context) error

	// OnShow and OnHide are called by the aggregator when the element enters
	// or leaves the visible set.
	OnShow()
	OnHide()
	Dispose()
}

// stateNotifier is implemented by elements that report their own state
// transitions to the change-set holding them.
type stateNotifier interface {
	setStateListener(fn func())
}
