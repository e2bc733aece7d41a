// Package parser splits chat request text into typed parts.
package parser

import (
	"context"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/dlclark/regexp2"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/internal/tool"
)

// Leader characters. '/' is reserved for subcommands and not parsed.
const (
	AgentLeader    = '@'
	VariableLeader = '#'
	FunctionLeader = '~'
)

var (
	functionPattern = regexp2.MustCompile(`^~(?:\{([^}\s]+)\}|([\w\-.]+))`, regexp2.None)
	variablePattern = regexp2.MustCompile(`^#([\w-]+)(?::(\S+))?`, regexp2.None)
	agentPattern    = regexp2.MustCompile(`^@([\w-]+)`, regexp2.None)
)

// AgentLookup finds agents by name.
type AgentLookup interface {
	Lookup(name string) (*agent.Agent, bool)
}

// ToolLookup finds tools by id.
type ToolLookup interface {
	Get(id string) (*tool.Descriptor, bool)
}

// Parser parses chat requests. Nil collaborators disable the corresponding
// part kind: mentions and references then stay plain text, and variables
// are left unresolved.
type Parser struct {
	Agents    AgentLookup
	Tools     ToolLookup
	Variables VariableResolver
}

// New creates a parser.
func New(agents AgentLookup, tools ToolLookup, variables VariableResolver) *Parser {
	return &Parser{Agents: agents, Tools: tools, Variables: variables}
}

// Parse splits text into parts, then resolves every variable part followed
// by the session context entries. Resolution failures are logged and
// skipped; the only error returned is ctx's.
func (p *Parser) Parse(ctx context.Context, text string, loc agent.Location, sessionContext []VariableRequest) (*ParsedRequest, error) {
	req := &ParsedRequest{Text: text}
	req.Parts = p.scan(text, loc, req)

	seen := make(map[string]bool)
	addTool := func(d *tool.Descriptor) {
		if !seen[d.ID] {
			seen[d.ID] = true
			req.ToolRequests = append(req.ToolRequests, d)
		}
	}
	for _, part := range req.Parts {
		if fp, ok := part.(*FunctionPart); ok {
			addTool(fp.Tool)
		}
	}

	if p.Variables != nil {
		resolve := func(vr VariableRequest, idx int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := p.Variables.ResolveVariable(ctx, vr)
			if err != nil {
				p.warnUnresolved(vr, err)
				return nil
			}
			req.Variables = append(req.Variables, ResolvedVariable{VariableRequest: vr, Value: value, Part: idx})
			return nil
		}

		for idx, part := range req.Parts {
			if vp, ok := part.(*VariablePart); ok {
				if err := resolve(vp.Request(), idx); err != nil {
					return nil, err
				}
			}
		}
		for _, vr := range sessionContext {
			if err := resolve(vr, -1); err != nil {
				return nil, err
			}
		}
	}

	// Tools named inside resolved values become available too. Only the
	// resolved text is scanned, not anything it resolves to in turn.
	if p.Tools != nil {
		for _, v := range req.Variables {
			for _, id := range FunctionRefs(v.Value) {
				if d, ok := p.Tools.Get(id); ok {
					addTool(d)
				}
			}
		}
	}

	return req, nil
}

// scan performs the left-to-right boundary scan. It sets req.Agent to the
// first accepted mention.
func (p *Parser) scan(text string, loc agent.Location, req *ParsedRequest) []Part {
	runes := []rune(text)
	var parts []Part

	textStart := 0
	flush := func(end int) {
		if end > textStart {
			parts = append(parts, &TextPart{
				Range:   Range{Start: textStart, End: end},
				Content: string(runes[textStart:end]),
			})
		}
	}

	for i := 0; i < len(runes); {
		if !atBoundary(runes, i) {
			i++
			continue
		}
		part, n := p.matchAt(runes, i, loc, req)
		if n == 0 {
			i++
			continue
		}
		if part != nil {
			flush(i)
			parts = append(parts, part)
			textStart = i + n
		}
		i += n
	}
	flush(len(runes))
	return parts
}

// matchAt tries function, variable and agent leaders at i. It returns the
// number of runes consumed; a nil part with n > 0 means the span matched the
// grammar but was rejected and stays text.
func (p *Parser) matchAt(runes []rune, i int, loc agent.Location, req *ParsedRequest) (Part, int) {
	switch runes[i] {
	case FunctionLeader:
		m := match(functionPattern, runes[i:])
		if m == nil {
			return nil, 0
		}
		id := m.GroupByNumber(1).String()
		if id == "" {
			id = m.GroupByNumber(2).String()
		}
		rng := Range{Start: i, End: i + m.Length}
		if p.Tools == nil {
			return nil, m.Length
		}
		d, ok := p.Tools.Get(id)
		if !ok {
			return nil, m.Length
		}
		return &FunctionPart{Range: rng, Raw: m.String(), Tool: d}, m.Length

	case VariableLeader:
		m := match(variablePattern, runes[i:])
		if m == nil {
			return nil, 0
		}
		return &VariablePart{
			Range: Range{Start: i, End: i + m.Length},
			Raw:   m.String(),
			Name:  m.GroupByNumber(1).String(),
			Arg:   m.GroupByNumber(2).String(),
		}, m.Length

	case AgentLeader:
		m := match(agentPattern, runes[i:])
		if m == nil {
			return nil, 0
		}
		if req.Agent != nil || p.Agents == nil {
			return nil, m.Length
		}
		a, ok := p.Agents.Lookup(m.GroupByNumber(1).String())
		if !ok || !a.SupportsLocation(loc) {
			return nil, m.Length
		}
		req.Agent = a
		return &AgentPart{Range: Range{Start: i, End: i + m.Length}, Raw: m.String(), Agent: a}, m.Length
	}
	return nil, 0
}

// FunctionRefs returns the tool ids referenced with ~id or ~{id} in text,
// in order of appearance.
func FunctionRefs(text string) []string {
	runes := []rune(text)
	var ids []string
	for i := 0; i < len(runes); i++ {
		if runes[i] != FunctionLeader || !atBoundary(runes, i) {
			continue
		}
		m := match(functionPattern, runes[i:])
		if m == nil {
			continue
		}
		id := m.GroupByNumber(1).String()
		if id == "" {
			id = m.GroupByNumber(2).String()
		}
		ids = append(ids, id)
		i += m.Length - 1
	}
	return ids
}

func match(re *regexp2.Regexp, runes []rune) *regexp2.Match {
	m, err := re.FindRunesMatch(runes)
	if err != nil || m == nil || m.Length == 0 {
		return nil
	}
	return m
}

func atBoundary(runes []rune, i int) bool {
	return i == 0 || unicode.IsSpace(runes[i-1])
}

func (p *Parser) warnUnresolved(vr VariableRequest, err error) {
	log := logging.Component("parser")
	ev := log.Warn().Err(err).Str("variable", vr.Name)
	if vr.Arg != "" {
		ev = ev.Str("arg", vr.Arg)
	}
	if n, ok := p.Variables.(namer); ok {
		if s := suggest(vr.Name, n.Names()); s != "" {
			ev = ev.Str("suggestion", s)
		}
	}
	ev.Msg("variable not resolved")
}

// suggest returns the closest known name, or "" if none is close.
func suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := levenshtein.ComputeDistance(name, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist >= 0 && bestDist <= max(len(name)/2, 1) {
		return best
	}
	return ""
}
