package parser

import (
	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/tool"
)

// PartKind identifies the type of a parsed request part.
type PartKind string

const (
	KindText     PartKind = "text"
	KindAgent    PartKind = "agent"
	KindVariable PartKind = "variable"
	KindFunction PartKind = "function"
)

// Range is a half-open span of rune offsets into the request text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Part is one typed span of a parsed request.
type Part interface {
	Kind() PartKind
	Span() Range
	// Text is the raw request text covered by the part.
	Text() string
}

// TextPart is plain text.
type TextPart struct {
	Range   Range
	Content string
}

// Kind returns the part kind.
func (p *TextPart) Kind() PartKind { return KindText }

// Span returns the part range in the request text.
func (p *TextPart) Span() Range { return p.Range }

// Text returns the request text the part covers.
func (p *TextPart) Text() string { return p.Content }

// AgentPart is an accepted @name mention.
type AgentPart struct {
	Range Range
	Raw   string
	Agent *agent.Agent
}

// Kind returns the part kind.
func (p *AgentPart) Kind() PartKind { return KindAgent }

// Span returns the part range in the request text.
func (p *AgentPart) Span() Range { return p.Range }

// Text returns the request text the part covers.
func (p *AgentPart) Text() string { return p.Raw }

// VariablePart is a #name or #name:arg reference.
type VariablePart struct {
	Range Range
	Raw   string
	Name  string
	Arg   string
}

// Kind returns the part kind.
func (p *VariablePart) Kind() PartKind { return KindVariable }

// Span returns the part range in the request text.
func (p *VariablePart) Span() Range { return p.Range }

// Text returns the request text the part covers.
func (p *VariablePart) Text() string { return p.Raw }

// Request returns the resolution request for this reference.
func (p *VariablePart) Request() VariableRequest {
	return VariableRequest{Name: p.Name, Arg: p.Arg}
}

// FunctionPart is a ~id or ~{id} reference to a registered tool.
type FunctionPart struct {
	Range Range
	Raw   string
	Tool  *tool.Descriptor
}

// Kind returns the part kind.
func (p *FunctionPart) Kind() PartKind { return KindFunction }

// Span returns the part range in the request text.
func (p *FunctionPart) Span() Range { return p.Range }

// Text returns the request text the part covers.
func (p *FunctionPart) Text() string { return p.Raw }

// ParsedRequest is the result of parsing a chat request.
type ParsedRequest struct {
	Text  string
	Parts []Part

	// Agent is the first accepted mention, nil if none.
	Agent *agent.Agent

	// ToolRequests holds tools referenced by the text or by resolved variable
	// values, deduplicated in first-seen order.
	ToolRequests []*tool.Descriptor

	// Variables holds successfully resolved references: request parts first,
	// then session context entries.
	Variables []ResolvedVariable
}

// AgentID returns the mentioned agent name or "".
func (r *ParsedRequest) AgentID() string {
	if r.Agent == nil {
		return ""
	}
	return r.Agent.Name
}

// ToolIDs returns the ids of ToolRequests.
func (r *ParsedRequest) ToolIDs() []string {
	ids := make([]string, 0, len(r.ToolRequests))
	for _, d := range r.ToolRequests {
		ids = append(ids, d.ID)
	}
	return ids
}

// VariableParts returns the variable references in text order.
func (r *ParsedRequest) VariableParts() []*VariablePart {
	var out []*VariablePart
	for _, p := range r.Parts {
		if vp, ok := p.(*VariablePart); ok {
			out = append(out, vp)
		}
	}
	return out
}
