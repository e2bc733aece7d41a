package permission

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy maps tool ids to confirmation modes. Keys of Tools may be exact tool
// ids or doublestar patterns such as "fs_*" or "mcp/**".
type Policy struct {
	Default Mode
	Tools   map[string]Mode
}

// NewPolicy builds a policy from configured strings.
func NewPolicy(defaultMode string, tools map[string]string) (Policy, error) {
	def, err := ParseMode(defaultMode)
	if err != nil {
		return Policy{}, err
	}

	p := Policy{Default: def, Tools: make(map[string]Mode, len(tools))}
	for pattern, raw := range tools {
		if !doublestar.ValidatePattern(pattern) {
			return Policy{}, fmt.Errorf("invalid tool pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		mode, err := ParseMode(raw)
		if err != nil {
			return Policy{}, fmt.Errorf("tool %q: %w", pattern, err)
		}
		p.Tools[pattern] = mode
	}
	return p, nil
}

// ModeFor returns the mode for a tool id. An exact key wins; otherwise the
// longest matching pattern; otherwise the default, which itself falls back to
// ModeConfirm.
func (p Policy) ModeFor(toolID string) Mode {
	if mode, ok := p.Tools[toolID]; ok {
		return mode
	}

	patterns := make([]string, 0, len(p.Tools))
	for pattern := range p.Tools {
		patterns = append(patterns, pattern)
	}
	// Most specific first; ties broken alphabetically for determinism.
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})

	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, toolID); ok {
			return p.Tools[pattern]
		}
	}

	if p.Default == "" {
		return ModeConfirm
	}
	return p.Default
}
