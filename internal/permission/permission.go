// Package permission provides permission control for tool execution.
package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how a tool invocation is gated.
type Mode string

const (
	// ModeAlwaysAllow invokes the handler without asking.
	ModeAlwaysAllow Mode = "always_allow"
	// ModeDisabled never invokes the handler and yields a denial result.
	ModeDisabled Mode = "disabled"
	// ModeConfirm waits for the user to confirm the tool call.
	ModeConfirm Mode = "confirm"
)

// ParseMode parses a configured confirmation mode. Besides the canonical
// names it accepts the allow/deny/ask spellings used in agent permission
// blocks.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always_allow", "allow", "always":
		return ModeAlwaysAllow, nil
	case "disabled", "deny", "never":
		return ModeDisabled, nil
	case "confirm", "ask", "":
		return ModeConfirm, nil
	}
	return "", fmt.Errorf("unknown confirmation mode %q", s)
}

// Outcome is the resolution state of a Confirmation.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeDenied    Outcome = "denied"
	OutcomeCanceled  Outcome = "canceled"
)

// ErrAlreadyResolved is returned when resolving a confirmation twice.
var ErrAlreadyResolved = errors.New("confirmation already resolved")

// CanceledError is the rejection delivered to waiters of a canceled
// confirmation.
type CanceledError struct {
	Reason string
}

func (e *CanceledError) Error() string {
	if e.Reason == "" {
		return "tool call canceled"
	}
	return "tool call canceled: " + e.Reason
}

// IsCanceledError checks if an error is a confirmation cancellation.
func IsCanceledError(err error) bool {
	var ce *CanceledError
	return errors.As(err, &ce)
}

// DeniedResult is the tool result synthesized when a call is denied, either
// by the user or because the tool is disabled.
type DeniedResult struct {
	ToolID  string `json:"toolId"`
	Denied  bool   `json:"denied"`
	Message string `json:"message"`
}

// NewDeniedResult builds the result for a denied tool call.
func NewDeniedResult(toolID, message string) DeniedResult {
	return DeniedResult{ToolID: toolID, Denied: true, Message: message}
}
