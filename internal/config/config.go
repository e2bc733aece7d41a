package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/changeset"
	"github.com/opencode-ai/chatcore/internal/permission"
	"github.com/opencode-ai/chatcore/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config ($XDG_CONFIG_HOME/chatcore/)
// 2. Project config (chatcore.json and .chatcore/)
// 3. Project agent definitions (.chatcore/agents/*.yaml)
// 4. CHATCORE_CONFIG file
// 5. CHATCORE_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Agent:     make(map[string]types.AgentConfig),
		Variables: make(map[string]string),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	var loadErr error
	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		err = loadConfigFile(path, config, baseDir)
		switch {
		case err == nil:
			loaded[absPath] = true
		case !os.IsNotExist(err) && loadErr == nil:
			loadErr = fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "chatcore.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "chatcore.jsonc"), globalPath)

	// 2. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".chatcore")
		loadOnce(filepath.Join(directory, "chatcore.json"), directory)
		loadOnce(filepath.Join(directory, "chatcore.jsonc"), directory)
		loadOnce(filepath.Join(projectConfigDir, "chatcore.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "chatcore.jsonc"), projectConfigDir)

		// 3. YAML agent definitions
		agents, err := agent.ReadDir(AgentsDir(directory))
		if err != nil && loadErr == nil {
			loadErr = err
		}
		for name, cfg := range agents {
			config.Agent[name] = cfg
		}
	}

	// 4. CHATCORE_CONFIG file override
	if configPath := os.Getenv("CHATCORE_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 5. CHATCORE_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("CHATCORE_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(configContent)), &inlineConfig); err != nil {
			if loadErr == nil {
				loadErr = fmt.Errorf("invalid CHATCORE_CONFIG_CONTENT: %w", err)
			}
		} else {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 6. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, loadErr
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return jsonEscape(os.Getenv(varName))
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		// Resolve path
		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}
		return jsonEscape(string(content))
	})

	return []byte(str)
}

// jsonEscape escapes s for use inside a JSON string literal.
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}

	// Merge tool confirmation: default overrides, tool entries combine
	if source.ToolConfirmation != nil {
		if target.ToolConfirmation == nil {
			target.ToolConfirmation = &types.ToolConfirmationConfig{}
		}
		if source.ToolConfirmation.Default != "" {
			target.ToolConfirmation.Default = source.ToolConfirmation.Default
		}
		if source.ToolConfirmation.Tools != nil {
			if target.ToolConfirmation.Tools == nil {
				target.ToolConfirmation.Tools = make(map[string]string)
			}
			for k, v := range source.ToolConfirmation.Tools {
				target.ToolConfirmation.Tools[k] = v
			}
		}
	}

	// Merge change-set config
	if source.ChangeSet != nil {
		if target.ChangeSet == nil {
			target.ChangeSet = &types.ChangeSetConfig{}
		}
		if source.ChangeSet.DebounceMs != nil {
			target.ChangeSet.DebounceMs = source.ChangeSet.DebounceMs
		}
		if source.ChangeSet.Watch {
			target.ChangeSet.Watch = true
		}
		if len(source.ChangeSet.Ignore) > 0 {
			target.ChangeSet.Ignore = append(target.ChangeSet.Ignore, source.ChangeSet.Ignore...)
		}
	}

	// Merge agents
	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = make(map[string]types.AgentConfig)
		}
		for k, v := range source.Agent {
			target.Agent[k] = v
		}
	}

	// Merge variables
	if source.Variables != nil {
		if target.Variables == nil {
			target.Variables = make(map[string]string)
		}
		for k, v := range source.Variables {
			target.Variables[k] = v
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if level := os.Getenv("CHATCORE_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	// Default confirmation mode
	if mode := os.Getenv("CHATCORE_TOOL_CONFIRMATION"); mode != "" {
		if config.ToolConfirmation == nil {
			config.ToolConfirmation = &types.ToolConfirmationConfig{}
		}
		config.ToolConfirmation.Default = mode
	}

	if raw := os.Getenv("CHATCORE_DEBOUNCE_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			if config.ChangeSet == nil {
				config.ChangeSet = &types.ChangeSetConfig{}
			}
			config.ChangeSet.DebounceMs = &ms
		}
	}
}

// ToolPolicy builds the tool confirmation policy from config.
func ToolPolicy(config *types.Config) (permission.Policy, error) {
	if config == nil || config.ToolConfirmation == nil {
		return permission.NewPolicy("", nil)
	}
	return permission.NewPolicy(config.ToolConfirmation.Default, config.ToolConfirmation.Tools)
}

// DebounceWindow returns the change-set recompute window.
func DebounceWindow(config *types.Config) time.Duration {
	if config == nil || config.ChangeSet == nil || config.ChangeSet.DebounceMs == nil {
		return changeset.DefaultDebounce
	}
	return time.Duration(*config.ChangeSet.DebounceMs) * time.Millisecond
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
