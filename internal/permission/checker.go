package permission

import (
	"context"
	"sync"

	"github.com/opencode-ai/chatcore/internal/event"
)

// Confirmation gates one tool call behind a user decision. It starts pending
// and resolves exactly once to confirmed, denied or canceled.
type Confirmation struct {
	mu       sync.Mutex
	outcome  Outcome
	reason   string
	done     chan struct{}
	resolved event.Emitter[Outcome]
}

// NewConfirmation creates a pending confirmation.
func NewConfirmation() *Confirmation {
	return &Confirmation{
		outcome: OutcomePending,
		done:    make(chan struct{}),
	}
}

// Confirm lets the tool call proceed.
func (c *Confirmation) Confirm() error {
	return c.resolve(OutcomeConfirmed, "")
}

// Deny rejects the tool call on behalf of the user.
func (c *Confirmation) Deny() error {
	return c.resolve(OutcomeDenied, "")
}

// Cancel abandons the confirmation. Waiters receive a *CanceledError carrying
// reason.
func (c *Confirmation) Cancel(reason string) error {
	return c.resolve(OutcomeCanceled, reason)
}

func (c *Confirmation) resolve(outcome Outcome, reason string) error {
	c.mu.Lock()
	if c.outcome != OutcomePending {
		c.mu.Unlock()
		return ErrAlreadyResolved
	}
	c.outcome = outcome
	c.reason = reason
	close(c.done)
	c.mu.Unlock()

	c.resolved.Emit(outcome)
	c.resolved.Dispose()
	return nil
}

// Outcome returns the current state.
func (c *Confirmation) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Pending reports whether the confirmation is unresolved.
func (c *Confirmation) Pending() bool {
	return c.Outcome() == OutcomePending
}

// Reason returns the cancellation reason, if any.
func (c *Confirmation) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Done is closed once the confirmation resolves.
func (c *Confirmation) Done() <-chan struct{} {
	return c.done
}

// OnResolve registers fn to run on resolution. If the confirmation is already
// resolved fn runs immediately.
func (c *Confirmation) OnResolve(fn func(Outcome)) func() {
	c.mu.Lock()
	outcome := c.outcome
	if outcome == OutcomePending {
		unsubscribe := c.resolved.On(fn)
		c.mu.Unlock()
		return unsubscribe
	}
	c.mu.Unlock()

	fn(outcome)
	return func() {}
}

// Wait blocks until the confirmation resolves or ctx is done. It returns true
// when confirmed, false with a nil error when denied, and a *CanceledError
// when canceled.
func (c *Confirmation) Wait(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.outcome {
	case OutcomeConfirmed:
		return true, nil
	case OutcomeCanceled:
		return false, &CanceledError{Reason: c.reason}
	default:
		return false, nil
	}
}
