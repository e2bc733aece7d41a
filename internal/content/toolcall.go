package content

import (
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/chatcore/internal/permission"
)

// ToolCallContent is a tool invocation requested by the model. Arguments
// accumulate across streamed fragments carrying the same id.
type ToolCallContent struct {
	ID        string
	Name      string
	Arguments string
	Finished  bool
	Result    any

	mu           sync.Mutex
	confirmation *permission.Confirmation
}

// NewToolCall creates a tool call fragment.
func NewToolCall(id, name, arguments string) *ToolCallContent {
	return &ToolCallContent{ID: id, Name: name, Arguments: arguments}
}

// Kind returns KindToolCall.
func (c *ToolCallContent) Kind() Kind { return KindToolCall }

// AsDisplayString shows the call with its arguments.
func (c *ToolCallContent) AsDisplayString() string {
	if c.Finished {
		return fmt.Sprintf("%s(%s) done", c.Name, c.Arguments)
	}
	return fmt.Sprintf("%s(%s)", c.Name, c.Arguments)
}

// Merge absorbs a fragment with the same id, or an id-less fragment carrying
// arguments.
func (c *ToolCallContent) Merge(next Content) bool {
	n, ok := next.(*ToolCallContent)
	if !ok {
		return false
	}
	switch {
	case n.ID != "" && n.ID == c.ID:
	case n.ID == "" && n.Arguments != "":
	default:
		return false
	}

	c.Arguments += n.Arguments
	if c.Name == "" {
		c.Name = n.Name
	}
	if n.Finished {
		c.Finished = true
		c.Result = n.Result
	}
	return true
}

// ToModelMessage converts the call into an assistant message carrying it.
func (c *ToolCallContent) ToModelMessage() *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:   c.ID,
		Type: "function",
		Function: schema.FunctionCall{
			Name:      c.Name,
			Arguments: c.Arguments,
		},
	}})
}

// Confirmation returns the confirmation gating this call, creating it on
// first use.
func (c *ToolCallContent) Confirmation() *permission.Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmation == nil {
		c.confirmation = permission.NewConfirmation()
	}
	return c.confirmation
}

// ConfirmationPending reports whether a confirmation exists and awaits a
// decision.
func (c *ToolCallContent) ConfirmationPending() bool {
	c.mu.Lock()
	conf := c.confirmation
	c.mu.Unlock()
	return conf != nil && conf.Pending()
}

// Confirm approves the call.
func (c *ToolCallContent) Confirm() error { return c.Confirmation().Confirm() }

// Deny rejects the call.
func (c *ToolCallContent) Deny() error { return c.Confirmation().Deny() }

// CancelConfirmation rejects any waiter with reason.
func (c *ToolCallContent) CancelConfirmation(reason string) error {
	return c.Confirmation().Cancel(reason)
}

// Complete records the handler result.
func (c *ToolCallContent) Complete(result any) {
	c.Finished = true
	c.Result = result
}
