// Package agent provides the agents a chat request can be addressed to with
// an @name mention.
//
// An Agent declares the locations (panel, editor, terminal, notebook) it can
// be mentioned in and which tools it may call. Tool entries are exact ids or
// wildcard patterns; the most specific entry wins and unlisted tools are
// enabled.
//
//	registry := agent.NewRegistry()
//	a, ok := registry.Lookup("terminal")
//	a.SupportsLocation(agent.LocationEditor) // false
//	a.ToolEnabled("edit_file")               // false
//
// Custom agents come from the "agent" section of the configuration or from
// YAML files read with ReadDir:
//
//	# .chatcore/agents/reviewer.yaml
//	description: Reviews proposed changes
//	locations: [panel]
//	tools:
//	  "*": false
//	  read_file: true
package agent
