package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/chatcore/pkg/types"
)

func TestRegistry_BuiltIns(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, []string{"coder", "terminal", "universal"}, r.Names())

	a, err := r.Get("coder")
	require.NoError(t, err)
	assert.Equal(t, "coder", a.Name)

	_, err = r.Get("missing")
	assert.EqualError(t, err, "agent not found: missing")

	_, ok := r.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, DefaultAgent, r.Default().Name)
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&Agent{Name: "reviewer"})

	_, ok := r.Lookup("reviewer")
	assert.True(t, ok)

	list := r.List()
	require.Len(t, list, 4)
	assert.Equal(t, "coder", list[0].Name)

	r.Unregister("reviewer")
	_, ok = r.Lookup("reviewer")
	assert.False(t, ok)
}

func TestRegistry_DefaultFallback(t *testing.T) {
	r := NewRegistry()
	r.Unregister(DefaultAgent)

	a := r.Default()
	assert.Equal(t, DefaultAgent, a.Name)
	assert.True(t, a.ToolEnabled("edit_file"))
}

func TestRegistry_LoadFromConfig(t *testing.T) {
	r := NewRegistry()

	err := r.LoadFromConfig(map[string]types.AgentConfig{
		"coder": {
			Description: "Custom coder",
			Tools:       map[string]bool{"edit_file": false},
		},
		"terminal": {Disable: true},
		"notes": {
			Locations: []string{"notebook"},
			Prompt:    "Answer about notebooks",
		},
	})
	require.NoError(t, err)

	coder, err := r.Get("coder")
	require.NoError(t, err)
	assert.Equal(t, "Custom coder", coder.Description)
	assert.False(t, coder.BuiltIn)
	assert.False(t, coder.ToolEnabled("edit_file"))
	assert.True(t, coder.ToolEnabled("read_file"))
	assert.True(t, coder.SupportsLocation(LocationEditor))

	// The built-in template is untouched.
	assert.True(t, BuiltInAgents()["coder"].ToolEnabled("edit_file"))

	_, ok := r.Lookup("terminal")
	assert.False(t, ok)

	notes, err := r.Get("notes")
	require.NoError(t, err)
	assert.True(t, notes.SupportsLocation(LocationNotebook))
	assert.False(t, notes.SupportsLocation(LocationPanel))
	assert.Equal(t, "Answer about notebooks", notes.Prompt)
}

func TestRegistry_LoadFromConfigBadLocation(t *testing.T) {
	r := NewRegistry()
	err := r.LoadFromConfig(map[string]types.AgentConfig{
		"broken": {Locations: []string{"sidebar"}},
	})
	assert.ErrorContains(t, err, "agent broken")
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	yamlDef := `description: Reviews proposed changes
locations: [panel]
tools:
  "*": false
  read_file: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewer.yaml"), []byte(yamlDef), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	cfgs, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, cfgs, 1)

	cfg := cfgs["reviewer"]
	assert.Equal(t, "Reviews proposed changes", cfg.Description)
	assert.Equal(t, []string{"panel"}, cfg.Locations)
	assert.Equal(t, map[string]bool{"*": false, "read_file": true}, cfg.Tools)

	r := NewRegistry()
	require.NoError(t, r.LoadFromConfig(cfgs))
	reviewer, err := r.Get("reviewer")
	require.NoError(t, err)
	assert.False(t, reviewer.ToolEnabled("edit_file"))
}

func TestReadDir_Missing(t *testing.T) {
	cfgs, err := ReadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, cfgs)
}

func TestReadDir_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("tools: [unclosed"), 0o644))

	_, err := ReadDir(dir)
	assert.ErrorContains(t, err, "failed to parse agent")
}
