package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTool(id, description string) *Descriptor {
	return &Descriptor{
		ID:          id,
		Description: description,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "What to look for"},
				"limit": {"type": "integer", "minimum": 1}
			},
			"required": ["query"]
		}`),
		Handler: func(ctx context.Context, args string) (any, error) {
			return "mock result", nil
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(newMockTool("test_tool", "A test tool"))

	got, ok := registry.Get("test_tool")
	require.True(t, ok)
	assert.Equal(t, "test_tool", got.ID)
	assert.Equal(t, "test_tool", got.DisplayName())

	_, ok = registry.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_ListAndIDs(t *testing.T) {
	registry := NewRegistry()
	registry.Register(newMockTool("beta", "Beta"))
	registry.Register(newMockTool("alpha", "Alpha"))
	registry.Register(newMockTool("gamma", "Gamma"))

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, registry.IDs())
	assert.Len(t, registry.List(), 3)

	assert.True(t, registry.Unregister("beta"))
	assert.False(t, registry.Unregister("beta"))
	assert.Equal(t, []string{"alpha", "gamma"}, registry.IDs())
}

func TestRegistry_ToolInfos(t *testing.T) {
	registry := NewRegistry()
	registry.Register(newMockTool("search", "Search things"))

	infos := registry.ToolInfos()
	require.Len(t, infos, 1)
	assert.Equal(t, "search", infos[0].Name)
	assert.Equal(t, "Search things", infos[0].Desc)

	params := parseJSONSchemaToParams(newMockTool("x", "").Parameters)
	require.Contains(t, params, "query")
	assert.Equal(t, schema.String, params["query"].Type)
	assert.True(t, params["query"].Required)
	assert.Equal(t, schema.Integer, params["limit"].Type)
	assert.False(t, params["limit"].Required)
}

func TestRegistry_EinoTools(t *testing.T) {
	registry := NewRegistry()
	registry.Register(newMockTool("search", "Search things"))

	tools := registry.EinoTools()
	require.Len(t, tools, 1)

	info, err := tools[0].Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "search", info.Name)

	out, err := newMockTool("search", "").EinoTool().InvokableRun(context.Background(), `{"query":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, "mock result", out)
}

func TestDescriptor_ValidateArgs(t *testing.T) {
	d := newMockTool("search", "")

	assert.NoError(t, d.ValidateArgs(`{"query":"go"}`))
	assert.NoError(t, d.ValidateArgs(`{"query":"go","limit":3}`))

	err := d.ValidateArgs(`{"limit":0}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "search", verr.ToolID)
	assert.Len(t, verr.Errors, 2)

	err = d.ValidateArgs("")
	require.ErrorAs(t, err, &verr, "empty args are validated as an empty object")

	free := &Descriptor{ID: "free"}
	assert.NoError(t, free.ValidateArgs("not even json"))
}

func TestDescriptor_Invoke(t *testing.T) {
	d := newMockTool("search", "")

	_, err := d.Invoke(context.Background(), `{}`)
	assert.Error(t, err, "schema violations stop the handler")

	out, err := d.Invoke(context.Background(), `{"query":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, "mock result", out)

	_, err = (&Descriptor{ID: "nohandler"}).Invoke(context.Background(), "")
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry(afero.NewMemMapFs())
	assert.Equal(t, []string{"edit_file", "find_files", "read_file"}, registry.IDs())
}
