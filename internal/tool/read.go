package tool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const readDescription = `Reads a file.

Usage:
- By default, reads up to 2000 lines from the beginning
- You can optionally specify offset and limit for pagination
- Returns file contents with line numbers`

// Result is the output of the built-in tools.
type Result struct {
	Title    string         `json:"title"`
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ReadInput represents the input for the read tool.
type ReadInput struct {
	FilePath string `json:"filePath"`
	Offset   int    `json:"offset,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// NewReadTool creates the read_file tool. A file system attached to the call
// context takes precedence over fs.
func NewReadTool(fs afero.Fs) *Descriptor {
	return &Descriptor{
		ID:          "read_file",
		Name:        "Read File",
		Description: readDescription,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"filePath": {"type": "string", "description": "The path to the file to read"},
				"offset": {"type": "integer", "minimum": 0, "description": "Line number to start reading from"},
				"limit": {"type": "integer", "minimum": 0, "description": "Number of lines to read (default: 2000)"}
			},
			"required": ["filePath"]
		}`),
		Handler: func(ctx context.Context, args string) (any, error) {
			return readFile(ctx, fs, args)
		},
	}
}

func readFile(ctx context.Context, fs afero.Fs, args string) (*Result, error) {
	var params ReadInput
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if tc, ok := FromContext(ctx); ok && tc.Fs != nil {
		fs = tc.Fs
	}
	if params.Limit <= 0 {
		params.Limit = 2000
	}

	info, err := fs.Stat(params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", params.FilePath)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", params.FilePath)
	}

	data, err := afero.ReadFile(fs, params.FilePath)
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if params.Offset > 0 && lineNum < params.Offset {
			continue
		}
		if len(lines) >= params.Limit {
			continue
		}
		line := scanner.Text()
		if len(line) > 2000 {
			line = line[:2000] + "..."
		}
		lines = append(lines, fmt.Sprintf("%05d| %s", lineNum, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("<file>\n")
	sb.WriteString(strings.Join(lines, "\n"))

	lastReadLine := max(params.Offset-1, 0) + len(lines)
	if lineNum > lastReadLine {
		fmt.Fprintf(&sb, "\n\n(File has more lines. Use 'offset' parameter to read beyond line %d)", lastReadLine)
	} else {
		fmt.Fprintf(&sb, "\n\n(End of file - total %d lines)", lineNum)
	}
	sb.WriteString("\n</file>")

	return &Result{
		Title:  fmt.Sprintf("Read %s", filepath.Base(params.FilePath)),
		Output: sb.String(),
		Metadata: map[string]any{
			"file":       params.FilePath,
			"lines":      len(lines),
			"totalLines": lineNum,
		},
	}, nil
}
