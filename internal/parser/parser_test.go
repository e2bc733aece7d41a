package parser

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/internal/tool"
)

func newTestParser(vars VariableResolver) *Parser {
	tools := tool.NewRegistry()
	tools.Register(&tool.Descriptor{ID: "read_file"})
	tools.Register(&tool.Descriptor{ID: "edit_file"})
	tools.Register(&tool.Descriptor{ID: "mcp.git-log"})
	return New(agent.NewRegistry(), tools, vars)
}

func kinds(parts []Part) []PartKind {
	out := make([]PartKind, len(parts))
	for i, p := range parts {
		out[i] = p.Kind()
	}
	return out
}

func TestParse_FileVariable(t *testing.T) {
	p := newTestParser(nil)

	req, err := p.Parse(context.Background(), "#file:/a.ts", agent.LocationPanel, nil)
	require.NoError(t, err)

	require.Len(t, req.Parts, 1)
	vp, ok := req.Parts[0].(*VariablePart)
	require.True(t, ok)
	assert.Equal(t, "file", vp.Name)
	assert.Equal(t, "/a.ts", vp.Arg)
	assert.Equal(t, Range{Start: 0, End: 11}, vp.Span())
}

func TestParse_MixedParts(t *testing.T) {
	p := newTestParser(nil)

	text := "@coder fix #file:src/main.go using ~read_file and ~{edit_file}"
	req, err := p.Parse(context.Background(), text, agent.LocationEditor, nil)
	require.NoError(t, err)

	assert.Equal(t, []PartKind{
		KindAgent, KindText, KindVariable, KindText, KindFunction, KindText, KindFunction,
	}, kinds(req.Parts))
	assert.Equal(t, "coder", req.AgentID())
	assert.Equal(t, []string{"read_file", "edit_file"}, req.ToolIDs())

	// Parts tile the whole text.
	var rebuilt string
	for _, part := range req.Parts {
		rebuilt += part.Text()
	}
	assert.Equal(t, text, rebuilt)
}

func TestParse_OnlyAtBoundaries(t *testing.T) {
	p := newTestParser(nil)

	req, err := p.Parse(context.Background(), "mail me@coder or a#b~read_file", agent.LocationPanel, nil)
	require.NoError(t, err)

	require.Len(t, req.Parts, 1)
	assert.Equal(t, KindText, req.Parts[0].Kind())
	assert.Nil(t, req.Agent)
	assert.Empty(t, req.ToolRequests)
}

func TestParse_FirstAgentOnly(t *testing.T) {
	p := newTestParser(nil)

	req, err := p.Parse(context.Background(), "@coder ask @universal", agent.LocationPanel, nil)
	require.NoError(t, err)

	assert.Equal(t, "coder", req.AgentID())
	assert.Equal(t, []PartKind{KindAgent, KindText}, kinds(req.Parts))
	assert.Equal(t, " ask @universal", req.Parts[1].Text())
}

func TestParse_AgentLocation(t *testing.T) {
	p := newTestParser(nil)

	// terminal is not available in the editor; the mention stays text and
	// a later supported mention is honored.
	req, err := p.Parse(context.Background(), "@terminal then @coder", agent.LocationEditor, nil)
	require.NoError(t, err)

	assert.Equal(t, "coder", req.AgentID())
	assert.Equal(t, []PartKind{KindText, KindAgent}, kinds(req.Parts))
	assert.Equal(t, "@terminal then ", req.Parts[0].Text())
}

func TestParse_UnknownReferencesStayText(t *testing.T) {
	p := newTestParser(nil)

	req, err := p.Parse(context.Background(), "@nobody ~missing ~{mcp.git-log}", agent.LocationPanel, nil)
	require.NoError(t, err)

	assert.Nil(t, req.Agent)
	assert.Equal(t, []PartKind{KindText, KindFunction}, kinds(req.Parts))
	assert.Equal(t, "@nobody ~missing ", req.Parts[0].Text())
	assert.Equal(t, []string{"mcp.git-log"}, req.ToolIDs())
}

func TestParse_RuneRanges(t *testing.T) {
	p := newTestParser(nil)

	req, err := p.Parse(context.Background(), "héllo #sel", agent.LocationPanel, nil)
	require.NoError(t, err)

	require.Len(t, req.Parts, 2)
	assert.Equal(t, Range{Start: 0, End: 6}, req.Parts[0].Span())
	assert.Equal(t, Range{Start: 6, End: 10}, req.Parts[1].Span())
}

func TestParse_ResolvesSequentially(t *testing.T) {
	var order []string
	resolver := ResolverFunc(func(_ context.Context, req VariableRequest) (string, error) {
		order = append(order, req.String())
		switch req.Name {
		case "selection":
			return "const a = 1", nil
		case "rules":
			return "always use ~edit_file and ~{read_file}", nil
		}
		return "", ErrUnresolved
	})
	p := newTestParser(resolver)

	req, err := p.Parse(context.Background(), "#selection #unknown:x", agent.LocationPanel,
		[]VariableRequest{{Name: "rules"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"#selection", "#unknown:x", "#rules"}, order)
	require.Len(t, req.Variables, 2)
	assert.Equal(t, "const a = 1", req.Variables[0].Value)
	assert.Equal(t, 0, req.Variables[0].Part)
	assert.Equal(t, "rules", req.Variables[1].Name)
	assert.Equal(t, -1, req.Variables[1].Part)

	// Tools named by resolved values are requested.
	assert.Equal(t, []string{"edit_file", "read_file"}, req.ToolIDs())
}

func TestParse_ResolvedValuesScannedOneLevel(t *testing.T) {
	resolver := StaticResolver{
		"outer": "see #inner and ~read_file",
		"inner": "~edit_file",
	}
	p := newTestParser(resolver)

	req, err := p.Parse(context.Background(), "#outer", agent.LocationPanel, nil)
	require.NoError(t, err)

	require.Len(t, req.Variables, 1)
	assert.Equal(t, []string{"read_file"}, req.ToolIDs())
}

func TestParse_UnresolvedWarnsWithSuggestion(t *testing.T) {
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: logging.WarnLevel, Output: &buf})

	p := newTestParser(StaticResolver{"selection": "x"})
	req, err := p.Parse(context.Background(), "#selectoin please", agent.LocationPanel, nil)
	require.NoError(t, err)

	assert.Empty(t, req.Variables)
	assert.Contains(t, buf.String(), `"suggestion":"selection"`)
	assert.Contains(t, buf.String(), "variable not resolved")
}

func TestParse_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestParser(StaticResolver{"a": "1"})
	_, err := p.Parse(ctx, "#a", agent.LocationPanel, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_NilCollaborators(t *testing.T) {
	p := New(nil, nil, nil)

	req, err := p.Parse(context.Background(), "@coder ~read_file #file:x", agent.LocationPanel, nil)
	require.NoError(t, err)

	assert.Nil(t, req.Agent)
	assert.Equal(t, []PartKind{KindText, KindVariable}, kinds(req.Parts))
	assert.Empty(t, req.Variables)
}

func TestFunctionRefs(t *testing.T) {
	assert.Equal(t, []string{"a", "b.c", "d"}, FunctionRefs("~a x~no ~{b.c}\n~d"))
	assert.Empty(t, FunctionRefs("no refs ~ here"))
}

func TestResolvers(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.ts", []byte("export {}"), 0o644))

	chain := Chain{StaticResolver{"selection": "sel"}, FileResolver{Fs: fs}}
	ctx := context.Background()

	v, err := chain.ResolveVariable(ctx, VariableRequest{Name: "file", Arg: "/a.ts"})
	require.NoError(t, err)
	assert.Equal(t, "export {}", v)

	v, err = chain.ResolveVariable(ctx, VariableRequest{Name: "selection"})
	require.NoError(t, err)
	assert.Equal(t, "sel", v)

	_, err = chain.ResolveVariable(ctx, VariableRequest{Name: "nope"})
	assert.ErrorIs(t, err, ErrUnresolved)

	// A real failure stops the chain.
	_, err = chain.ResolveVariable(ctx, VariableRequest{Name: "file", Arg: "/missing.ts"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnresolved))

	assert.Equal(t, []string{"file", "selection"}, chain.Names())
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "selection", suggest("selecton", []string{"file", "selection"}))
	assert.Equal(t, "", suggest("zzz", []string{"file", "selection"}))
	assert.Equal(t, "", suggest("file", []string{"file"}))
}
