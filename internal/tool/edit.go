package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/afero"

	"github.com/opencode-ai/chatcore/internal/changeset"
)

const editDescription = `Proposes an edit to a file. The edit is not written to disk; it is added
to the change-set of the current request for the user to apply.

Usage:
- Provide content to propose the whole file
- Or provide oldString and newString to replace text in the current proposal
- Set delete to propose removing the file`

// EditInput represents the input for the edit tool.
type EditInput struct {
	FilePath   string  `json:"filePath"`
	Content    *string `json:"content,omitempty"`
	OldString  string  `json:"oldString,omitempty"`
	NewString  string  `json:"newString,omitempty"`
	ReplaceAll bool    `json:"replaceAll,omitempty"`
	Delete     bool    `json:"delete,omitempty"`
}

// ErrNoChangeSet is returned when the edit tool runs outside a request.
var ErrNoChangeSet = errors.New("no change-set attached to tool call")

// NewEditTool creates the edit_file tool.
func NewEditTool(fs afero.Fs) *Descriptor {
	return &Descriptor{
		ID:          "edit_file",
		Name:        "Edit File",
		Description: editDescription,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"filePath": {"type": "string", "description": "The path to the file to edit"},
				"content": {"type": "string", "description": "The complete new file content"},
				"oldString": {"type": "string", "description": "The exact text to replace"},
				"newString": {"type": "string", "description": "The text to replace it with"},
				"replaceAll": {"type": "boolean", "description": "Replace all occurrences (default: false)"},
				"delete": {"type": "boolean", "description": "Propose deleting the file"}
			},
			"required": ["filePath"]
		}`),
		Handler: func(ctx context.Context, args string) (any, error) {
			return proposeEdit(ctx, fs, args)
		},
	}
}

func proposeEdit(ctx context.Context, fs afero.Fs, args string) (*Result, error) {
	var params EditInput
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	tc, ok := FromContext(ctx)
	if !ok || tc.EditTarget() == nil {
		return nil, ErrNoChangeSet
	}
	if tc.Fs != nil {
		fs = tc.Fs
	}
	cs := tc.ChangeSet
	var opts []changeset.FileOption
	if tc.Watcher != nil {
		opts = append(opts, changeset.WithWatcher(tc.Watcher))
	}
	uri := "file://" + filepath.ToSlash(filepath.Clean(params.FilePath))

	if params.Delete {
		el, err := changeset.NewFileElement(fs, params.FilePath, "", append(opts, changeset.WithDelete())...)
		if err != nil {
			return nil, err
		}
		cs.AddElements(el)
		return &Result{
			Title:    fmt.Sprintf("Delete %s", filepath.Base(params.FilePath)),
			Output:   "Proposed deleting the file",
			Metadata: map[string]any{"file": params.FilePath},
		}, nil
	}

	// Edits stack on a pending proposal for the same file: this request's
	// own first, then whatever the conversation currently shows.
	var current string
	existing, hasExisting := cs.GetElementByURI(uri)
	if fe, ok := existing.(*changeset.FileElement); hasExisting && ok && fe.State() != changeset.StateApplied {
		current = fe.Target()
	} else if fe, ok := visibleProposal(tc, uri); ok {
		current = fe.Target()
	} else {
		data, err := afero.ReadFile(fs, params.FilePath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		current = string(data)
	}

	var target string
	count := 0
	switch {
	case params.Content != nil:
		target = *params.Content
	case params.OldString == params.NewString:
		return nil, fmt.Errorf("oldString and newString must be different")
	default:
		count = strings.Count(current, params.OldString)
		switch {
		case count == 0:
			return nil, notFoundError(current, params.OldString)
		case count > 1 && !params.ReplaceAll:
			return nil, fmt.Errorf("oldString appears %d times in file. Use replaceAll or provide more context", count)
		case params.ReplaceAll:
			target = strings.ReplaceAll(current, params.OldString, params.NewString)
		default:
			target = strings.Replace(current, params.OldString, params.NewString, 1)
		}
	}

	if fe, ok := existing.(*changeset.FileElement); hasExisting && ok && fe.State() != changeset.StateApplied {
		fe.SetTarget(target)
		cs.NotifyStateChange(uri)
		return editResult(params.FilePath, fe.DiffStats(), count), nil
	}

	el, err := changeset.NewFileElement(fs, params.FilePath, target, opts...)
	if err != nil {
		return nil, err
	}
	cs.AddElements(el)
	return editResult(params.FilePath, el.DiffStats(), count), nil
}

// visibleProposal returns a pending file element another request proposed
// for uri.
func visibleProposal(tc *Context, uri string) (*changeset.FileElement, bool) {
	if tc.Lookup == nil {
		return nil, false
	}
	el, ok := tc.Lookup(uri)
	if !ok {
		return nil, false
	}
	fe, ok := el.(*changeset.FileElement)
	if !ok || fe.State() == changeset.StateApplied {
		return nil, false
	}
	return fe, true
}

func editResult(path string, d changeset.Diff, replacements int) *Result {
	return &Result{
		Title:  fmt.Sprintf("Edit %s", filepath.Base(path)),
		Output: fmt.Sprintf("Proposed edit: +%d -%d", d.Additions, d.Deletions),
		Metadata: map[string]any{
			"file":         path,
			"additions":    d.Additions,
			"deletions":    d.Deletions,
			"replacements": replacements,
			"diff":         d.Patch,
		},
	}
}

// notFoundError points at the closest line when oldString does not occur.
func notFoundError(text, old string) error {
	firstOld := strings.SplitN(old, "\n", 2)[0]
	best, bestDist := "", -1
	for _, line := range strings.Split(text, "\n") {
		d := levenshtein.ComputeDistance(strings.TrimSpace(line), strings.TrimSpace(firstOld))
		if bestDist < 0 || d < bestDist {
			best, bestDist = line, d
		}
	}
	if bestDist >= 0 && bestDist <= max(len(firstOld)/2, 1) {
		return fmt.Errorf("oldString not found in file; closest line: %q", best)
	}
	return fmt.Errorf("oldString not found in file")
}
