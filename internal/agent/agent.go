// Package agent provides the agents a chat request can be addressed to.
package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Location is the surface a conversation takes place in.
type Location string

const (
	LocationPanel    Location = "panel"
	LocationEditor   Location = "editor"
	LocationTerminal Location = "terminal"
	LocationNotebook Location = "notebook"
)

// ParseLocation parses a configured location name.
func ParseLocation(s string) (Location, error) {
	switch l := Location(strings.ToLower(strings.TrimSpace(s))); l {
	case LocationPanel, LocationEditor, LocationTerminal, LocationNotebook:
		return l, nil
	}
	return "", fmt.Errorf("unknown location %q", s)
}

// Agent represents an agent configuration.
type Agent struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BuiltIn     bool            `json:"builtIn"`
	Locations   []Location      `json:"locations,omitempty"`
	Tools       map[string]bool `json:"tools,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Color       string          `json:"color,omitempty"`
}

// ID returns the agent name.
func (a *Agent) ID() string { return a.Name }

// SupportsLocation reports whether the agent can be mentioned in loc. An
// agent without declared locations supports all of them.
func (a *Agent) SupportsLocation(loc Location) bool {
	if len(a.Locations) == 0 {
		return true
	}
	for _, l := range a.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// ToolEnabled checks if a tool is enabled for this agent.
func (a *Agent) ToolEnabled(toolID string) bool {
	// Check exact match
	if enabled, ok := a.Tools[toolID]; ok {
		return enabled
	}

	// Most specific pattern first
	patterns := make([]string, 0, len(a.Tools))
	for pattern := range a.Tools {
		patterns = append(patterns, pattern)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})
	for _, pattern := range patterns {
		if matchWildcard(pattern, toolID) {
			return a.Tools[pattern]
		}
	}

	// Default: enabled
	return true
}

// Clone creates a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	clone := &Agent{
		Name:        a.Name,
		Description: a.Description,
		BuiltIn:     a.BuiltIn,
		Prompt:      a.Prompt,
		Color:       a.Color,
	}
	if a.Locations != nil {
		clone.Locations = append([]Location(nil), a.Locations...)
	}
	if a.Tools != nil {
		clone.Tools = make(map[string]bool, len(a.Tools))
		for k, v := range a.Tools {
			clone.Tools[k] = v
		}
	}
	return clone
}

// matchWildcard checks if a string matches a wildcard pattern.
// For simple patterns (* at start/end), uses string matching.
// For complex patterns (containing **), uses doublestar.
func matchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}

	if strings.Contains(pattern, "**") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}

	// Simple suffix wildcard (prefix*)
	if strings.HasSuffix(pattern, "*") && !strings.HasPrefix(pattern, "*") && strings.Count(pattern, "*") == 1 {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}

	// Simple prefix wildcard (*suffix)
	if strings.HasPrefix(pattern, "*") && !strings.HasSuffix(pattern, "*") && strings.Count(pattern, "*") == 1 {
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	}

	if strings.ContainsAny(pattern, "*?[{") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}

	return pattern == s
}

// UniversalAgentPrompt is the system prompt of the default agent.
const UniversalAgentPrompt = `You are a coding assistant embedded in the user's workspace.
Propose file changes through the edit_file tool; never claim to have written a file yourself.
Keep answers short and put code in fenced blocks with a language tag.`

// BuiltInAgents returns the default agent configurations.
func BuiltInAgents() map[string]*Agent {
	return map[string]*Agent{
		"universal": {
			Name:        "universal",
			Description: "Default agent for questions and code changes in any surface",
			BuiltIn:     true,
			Tools:       map[string]bool{"*": true},
			Prompt:      UniversalAgentPrompt,
		},
		"coder": {
			Name:        "coder",
			Description: "Edits files in the workspace",
			BuiltIn:     true,
			Locations:   []Location{LocationPanel, LocationEditor},
			Tools:       map[string]bool{"*": true},
		},
		"terminal": {
			Name:        "terminal",
			Description: "Explains and suggests shell commands",
			BuiltIn:     true,
			Locations:   []Location{LocationTerminal},
			Tools: map[string]bool{
				"*":         false,
				"read_file": true,
			},
		},
	}
}
