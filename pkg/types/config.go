package types

// Config represents the chatcore configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Log level: DEBUG, INFO, WARN, ERROR, OFF
	LogLevel string `json:"logLevel,omitempty"`

	// Tool confirmation policy
	ToolConfirmation *ToolConfirmationConfig `json:"toolConfirmation,omitempty"`

	// Change-set aggregation
	ChangeSet *ChangeSetConfig `json:"changeSet,omitempty"`

	// Agent configs
	Agent map[string]AgentConfig `json:"agent,omitempty"`

	// Static variables served to #name references
	Variables map[string]string `json:"variables,omitempty"`
}

// ToolConfirmationConfig maps tool ids or patterns to confirmation modes.
type ToolConfirmationConfig struct {
	Default string            `json:"default,omitempty"` // "always_allow"|"disabled"|"confirm"
	Tools   map[string]string `json:"tools,omitempty"`
}

// ChangeSetConfig holds change-set view settings.
type ChangeSetConfig struct {
	// Quiet window before the aggregated view is recomputed; nil = default
	DebounceMs *int `json:"debounceMs,omitempty"`

	// Watch files of visible elements and mark them stale on external edits
	Watch bool `json:"watch,omitempty"`

	// Doublestar patterns never watched
	Ignore []string `json:"ignore,omitempty"`
}

// AgentConfig holds configuration for an agent. The same shape is read from
// JSON config and from YAML agent definition files.
type AgentConfig struct {
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Prompt      string          `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Locations   []string        `json:"locations,omitempty" yaml:"locations,omitempty"` // "panel"|"editor"|"terminal"|"notebook"
	Tools       map[string]bool `json:"tools,omitempty" yaml:"tools,omitempty"`
	Color       string          `json:"color,omitempty" yaml:"color,omitempty"`

	// Disable this agent
	Disable bool `json:"disable,omitempty" yaml:"disable,omitempty"`
}
