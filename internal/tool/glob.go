package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

const globDescription = `Fast file pattern matching tool.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths sorted by modification time, newest first
- Use this tool when you need to find files by name patterns`

// maxGlobFiles caps the number of paths returned.
const maxGlobFiles = 100

// GlobInput represents the input for the glob tool.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// NewGlobTool creates the find_files tool. A file system attached to the call
// context takes precedence over fs.
func NewGlobTool(fs afero.Fs) *Descriptor {
	return &Descriptor{
		ID:          "find_files",
		Name:        "Find Files",
		Description: globDescription,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string", "description": "The glob pattern to match files against"},
				"path": {"type": "string", "description": "Directory to search in (default: /)"}
			},
			"required": ["pattern"]
		}`),
		Handler: func(ctx context.Context, args string) (any, error) {
			return findFiles(ctx, fs, args)
		},
	}
}

func findFiles(ctx context.Context, fs afero.Fs, args string) (*Result, error) {
	var params GlobInput
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if tc, ok := FromContext(ctx); ok && tc.Fs != nil {
		fs = tc.Fs
	}
	if !doublestar.ValidatePattern(params.Pattern) {
		return nil, fmt.Errorf("invalid pattern %q", params.Pattern)
	}
	root := params.Path
	if root == "" {
		root = "/"
	}

	type match struct {
		path string
		info os.FileInfo
	}
	var matches []match
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(params.Pattern, filepath.ToSlash(rel)); ok {
			matches = append(matches, match{path: path, info: info})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}

	if len(matches) == 0 {
		return &Result{
			Title:  "Glob search",
			Output: "No files matched the pattern",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].info.ModTime().After(matches[j].info.ModTime())
	})

	truncated := len(matches) > maxGlobFiles
	if truncated {
		matches = matches[:maxGlobFiles]
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.path
	}

	output := strings.Join(paths, "\n")
	if truncated {
		output += fmt.Sprintf("\n\n(Showing first %d matches)", maxGlobFiles)
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d files", len(paths)),
		Output: output,
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(paths),
			"truncated": truncated,
		},
	}, nil
}
