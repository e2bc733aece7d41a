// Package config provides configuration loading, merging, and path management for chatcore.
//
// # Configuration Loading
//
// Load merges configuration from these sources, later ones overriding earlier ones:
//
//  1. Global config ($XDG_CONFIG_HOME/chatcore/chatcore.json[c])
//  2. Project config (chatcore.json[c] and .chatcore/chatcore.json[c])
//  3. Agent definitions in .chatcore/agents/*.yaml
//  4. CHATCORE_CONFIG file
//  5. CHATCORE_CONFIG_CONTENT inline JSON
//  6. Environment variables
//
// Missing files are skipped. A file that exists but cannot be parsed is
// reported through the returned error; Load still returns the configuration
// merged from the other sources.
//
// # Supported Formats
//
// JSON files may carry comments; they are stripped with tidwall/jsonc before
// decoding. Agent definition files are YAML.
//
// # Variable Interpolation
//
//   - {env:VAR_NAME} expands to an environment variable
//   - {file:path} expands to file contents, relative to the config file's directory
//
//	{
//	  "toolConfirmation": {
//	    "default": "confirm",
//	    "tools": {"read_file": "always_allow", "mcp_*": "disabled"}
//	  },
//	  "changeSet": {"debounceMs": 50, "watch": true},
//	  "variables": {"selection": "{env:EDITOR_SELECTION}"}
//	}
//
// # Environment Variable Overrides
//
//   - CHATCORE_LOG_LEVEL - Override the log level
//   - CHATCORE_TOOL_CONFIRMATION - Override the default tool confirmation mode
//   - CHATCORE_DEBOUNCE_MS - Override the change-set recompute window
//   - CHATCORE_CONFIG - Path to a specific config file
//   - CHATCORE_CONFIG_CONTENT - Inline JSON configuration
package config
