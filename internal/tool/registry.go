package tool

import (
	"sort"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/afero"

	"github.com/opencode-ai/chatcore/internal/logging"
)

// Registry manages tool registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Descriptor),
	}
}

// Register adds a tool to the registry, replacing any tool with the same id.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logging.Component("tool").Debug().Str("tool", d.ID).Msg("registering tool")
	r.tools[d.ID] = d
}

// Unregister removes a tool.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tools[id]
	delete(r.tools, id)
	return ok
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[id]
	return d, ok
}

// List returns all registered tools ordered by id.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		tools = append(tools, d)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools
}

// IDs returns all tool IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EinoTools returns Eino-compatible tools.
func (r *Registry) EinoTools() []einotool.BaseTool {
	list := r.List()
	tools := make([]einotool.BaseTool, 0, len(list))
	for _, d := range list {
		tools = append(tools, d.EinoTool())
	}
	return tools
}

// ToolInfos returns Eino tool infos for all tools.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	list := r.List()
	infos := make([]*schema.ToolInfo, 0, len(list))
	for _, d := range list {
		infos = append(infos, d.Info())
	}
	return infos
}

// DefaultRegistry creates a registry with the built-in file tools.
func DefaultRegistry(fs afero.Fs) *Registry {
	r := NewRegistry()
	r.Register(NewReadTool(fs))
	r.Register(NewGlobTool(fs))
	r.Register(NewEditTool(fs))
	return r
}
