// Package permission provides the confirmation gate that sits in front of
// tool execution.
//
// # Modes
//
// Each tool id resolves to one Mode through a Policy:
//   - ModeAlwaysAllow: the handler runs immediately
//   - ModeDisabled: the handler never runs; callers receive a DeniedResult
//   - ModeConfirm: the call waits on a Confirmation
//
// Policy keys are exact tool ids or doublestar patterns. The longest matching
// pattern wins.
//
//	policy, err := NewPolicy("confirm", map[string]string{
//		"read_*": "always_allow",
//		"shell":  "disabled",
//	})
//	mode := policy.ModeFor("read_file") // ModeAlwaysAllow
//
// # Confirmation
//
// A Confirmation is a three-state future. Confirm, Deny and Cancel are its only
// mutators and the first one wins; later calls return ErrAlreadyResolved.
// Wait blocks until resolution:
//
//	ok, err := c.Wait(ctx)
//	switch {
//	case IsCanceledError(err):
//		// the response was canceled
//	case ok:
//		// run the tool
//	default:
//		// denied by the user
//	}
package permission
