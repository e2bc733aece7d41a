package session

import (
	"context"
	"fmt"

	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/internal/permission"
	"github.com/opencode-ai/chatcore/internal/tool"
)

// DeniedByUser is the message of the result synthesized for a denied call.
const DeniedByUser = "Tool call denied by user"

// ConfirmingHandler wraps d's handler according to mode.
//
// ModeAlwaysAllow invokes the tool directly. ModeDisabled returns a denial
// result without touching the response. ModeConfirm locates the tool call,
// waits for the user's decision and invokes the tool only when confirmed.
// The call bound through tool.Context.CallID is used when present; otherwise
// the latest call named d.ID. The located call must already exist.
func (r *Response) ConfirmingHandler(d *tool.Descriptor, mode permission.Mode) tool.Handler {
	switch mode {
	case permission.ModeAlwaysAllow:
		return d.Invoke
	case permission.ModeDisabled:
		return func(context.Context, string) (any, error) {
			return permission.NewDeniedResult(d.ID, fmt.Sprintf("Tool %s is disabled", d.ID)), nil
		}
	}

	return func(ctx context.Context, args string) (any, error) {
		tc := r.confirmTarget(ctx, d.ID)
		if tc == nil {
			return nil, fmt.Errorf("%w: %s", ErrToolCallNotFound, d.ID)
		}

		conf := tc.Confirmation()
		// The confirmation drops its listeners once resolved.
		conf.OnResolve(func(outcome permission.Outcome) {
			r.onResolved.Emit(ToolCallResolution{ToolCall: tc, Outcome: outcome, Reason: conf.Reason()})
		})

		r.setWaiting(1)
		confirmed, err := conf.Wait(ctx)
		r.setWaiting(-1)

		log := logging.Component("session")
		if err != nil {
			log.Debug().Err(err).Str("tool", d.ID).Str("call", tc.ID).Msg("tool call not confirmed")
			return nil, err
		}
		if !confirmed {
			result := permission.NewDeniedResult(d.ID, DeniedByUser)
			r.completeToolCall(tc, result)
			return result, nil
		}

		result, err := d.Invoke(ctx, args)
		if err != nil {
			log.Debug().Err(err).Str("tool", d.ID).Str("call", tc.ID).Msg("tool call failed")
			return nil, err
		}
		r.completeToolCall(tc, result)
		return result, nil
	}
}

func (r *Response) confirmTarget(ctx context.Context, name string) *content.ToolCallContent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bound, ok := tool.FromContext(ctx); ok && bound.CallID != "" {
		tc := r.toolCallLocked(func(c *content.ToolCallContent) bool {
			return c.ID == bound.CallID && c.Name == name
		})
		if tc != nil {
			return tc
		}
	}
	return r.toolCallLocked(func(c *content.ToolCallContent) bool { return c.Name == name })
}
