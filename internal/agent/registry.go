package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/pkg/types"
)

// DefaultAgent is used when a request mentions no agent.
const DefaultAgent = "universal"

// Registry manages agent configurations.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates a new agent registry.
func NewRegistry() *Registry {
	r := &Registry{
		agents: make(map[string]*Agent),
	}

	// Register built-in agents
	for name, agent := range BuiltInAgents() {
		r.agents[name] = agent
	}

	return r
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*Agent, error) {
	agent, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", name)
	}
	return agent, nil
}

// Lookup retrieves an agent by name.
func (r *Registry) Lookup(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	return agent, ok
}

// Default returns the agent used when none is mentioned.
func (r *Registry) Default() *Agent {
	if agent, ok := r.Lookup(DefaultAgent); ok {
		return agent
	}
	return &Agent{Name: DefaultAgent, Tools: map[string]bool{"*": true}}
}

// Register adds or updates an agent.
func (r *Registry) Register(agent *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name] = agent
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// List returns all registered agents ordered by name.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents
}

// Names returns all agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LoadFromConfig applies agent configuration on top of the registered
// agents. Disabled agents are removed.
func (r *Registry) LoadFromConfig(config map[string]types.AgentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range config {
		if cfg.Disable {
			delete(r.agents, name)
			continue
		}

		// Start with existing or create new
		agent, exists := r.agents[name]
		if !exists {
			agent = &Agent{Name: name, Tools: make(map[string]bool)}
		} else {
			// Clone existing to avoid modifying built-in directly
			agent = agent.Clone()
			agent.BuiltIn = false
		}

		if cfg.Description != "" {
			agent.Description = cfg.Description
		}
		if cfg.Prompt != "" {
			agent.Prompt = cfg.Prompt
		}
		if cfg.Color != "" {
			agent.Color = cfg.Color
		}
		if cfg.Locations != nil {
			agent.Locations = agent.Locations[:0:0]
			for _, raw := range cfg.Locations {
				loc, err := ParseLocation(raw)
				if err != nil {
					return fmt.Errorf("agent %s: %w", name, err)
				}
				agent.Locations = append(agent.Locations, loc)
			}
		}
		if cfg.Tools != nil {
			if agent.Tools == nil {
				agent.Tools = make(map[string]bool)
			}
			for k, v := range cfg.Tools {
				agent.Tools[k] = v
			}
		}

		r.agents[name] = agent
	}
	return nil
}

// ReadDir parses every *.yaml / *.yml agent definition in dir. The file name
// without extension is the agent name. A missing directory yields no agents.
func ReadDir(dir string) (map[string]types.AgentConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make(map[string]types.AgentConfig)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var cfg types.AgentConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse agent %s: %w", path, err)
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		out[name] = cfg
		logging.Component("agent").Debug().Str("agent", name).Str("path", path).Msg("loaded agent definition")
	}
	return out, nil
}
