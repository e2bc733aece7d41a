// Package tool provides the tool framework for LLM tool execution.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"

	"github.com/opencode-ai/chatcore/internal/changeset"
)

// Handler executes a tool with its raw JSON argument string.
type Handler func(ctx context.Context, args string) (any, error)

// Descriptor describes a tool the model may call.
type Descriptor struct {
	ID           string
	Name         string
	Description  string
	Parameters   json.RawMessage
	ProviderName string
	Handler      Handler
}

// DisplayName returns Name, or ID when no name is set.
func (d *Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// ValidationError lists the schema violations of a tool call's arguments.
type ValidationError struct {
	ToolID string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.ToolID, strings.Join(e.Errors, "; "))
}

// ValidateArgs checks args against the descriptor's JSON schema. Tools
// without a schema accept anything.
func (d *Descriptor) ValidateArgs(args string) error {
	if len(d.Parameters) == 0 {
		return nil
	}
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}

	schemaLoader := gojsonschema.NewBytesLoader(d.Parameters)
	documentLoader := gojsonschema.NewStringLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &ValidationError{ToolID: d.ID, Errors: msgs}
	}
	return nil
}

// Invoke validates args and runs the handler.
func (d *Descriptor) Invoke(ctx context.Context, args string) (any, error) {
	if d.Handler == nil {
		return nil, fmt.Errorf("tool %s has no handler", d.ID)
	}
	if err := d.ValidateArgs(args); err != nil {
		return nil, err
	}
	return d.Handler(ctx, args)
}

// Info returns the eino tool description.
func (d *Descriptor) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        d.ID,
		Desc:        d.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(parseJSONSchemaToParams(d.Parameters)),
	}
}

// EinoTool returns an Eino-compatible tool implementation.
func (d *Descriptor) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: d}
}

// Context carries per-call state into a handler.
type Context struct {
	SessionID string
	RequestID string
	CallID    string
	// ChangeSet collects file edits proposed by the call. When nil,
	// EnsureChangeSet is used to create it on the first edit.
	ChangeSet       *changeset.ChangeSet
	EnsureChangeSet func() *changeset.ChangeSet
	// Watcher, when set, marks proposed file elements stale on disk changes.
	Watcher *changeset.Watcher
	Fs      afero.Fs
	// Lookup returns the element currently visible for a URI across the
	// conversation, so edits build on pending proposals of earlier requests.
	Lookup func(uri string) (changeset.Element, bool)
}

// EditTarget returns the change-set edits go to, creating it if needed.
func (c *Context) EditTarget() *changeset.ChangeSet {
	if c.ChangeSet == nil && c.EnsureChangeSet != nil {
		c.ChangeSet = c.EnsureChangeSet()
	}
	return c.ChangeSet
}

type contextKey struct{}

// WithContext attaches tc to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the tool context attached to ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok && tc != nil
}

// einoToolWrapper wraps a Descriptor to implement Eino's InvokableTool interface.
type einoToolWrapper struct {
	tool *Descriptor
}

func (w *einoToolWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return w.tool.Info(), nil
}

func (w *einoToolWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	result, err := w.tool.Invoke(ctx, argsJSON)
	if err != nil {
		return "", err
	}
	if s, ok := result.(string); ok {
		return s, nil
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parseJSONSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
