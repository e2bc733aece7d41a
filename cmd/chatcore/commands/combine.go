package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/chatcore/internal/changeset"
)

var combineCmd = &cobra.Command{
	Use:   "combine <file>",
	Short: "Aggregate change-sets along a request path",
	Long: `Read a JSON array of change-sets ordered from the first request to the
latest and print the elements visible in the aggregated view. For each URI
the change-set closest to the latest request wins.

  [
    {"title": "turn 1", "elements": [{"uri": "file:///a.go", "type": "modify", "content": "..."}]},
    {"title": "turn 2", "elements": [{"uri": "file:///b.go", "type": "add"}], "removed": ["file:///a.go"]}
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runCombine,
}

type changeSetLiteral struct {
	Title    string           `json:"title"`
	Elements []elementLiteral `json:"elements"`
	// Removed URIs hide definitions from earlier change-sets.
	Removed []string `json:"removed,omitempty"`
}

type elementLiteral struct {
	URI     string `json:"uri"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

func runCombine(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	var literals []changeSetLiteral
	if err := json.Unmarshal([]byte(data), &literals); err != nil {
		return fmt.Errorf("invalid change-set list: %w", err)
	}

	owner := make(map[changeset.Element]string)
	tipToRoot := make([]*changeset.ChangeSet, len(literals))
	for i, lit := range literals {
		cs := changeset.New(lit.Title)
		for _, el := range lit.Elements {
			typ, err := parseElementType(el.Type)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", lit.Title, el.URI, err)
			}
			m := changeset.NewMemoryElement(el.URI, typ, el.Content)
			owner[m] = lit.Title
			cs.AddElements(m)
		}
		cs.RemoveElements(lit.Removed...)
		tipToRoot[len(literals)-1-i] = cs
	}

	out := cmd.OutOrStdout()
	dim := color.New(color.FgHiBlack)
	for _, el := range changeset.Combine(tipToRoot...) {
		fmt.Fprintf(out, "%s %s %s\n", typeColor(el.Type()).Sprintf("%-6s", el.Type()), el.URI(), dim.Sprintf("(%s)", owner[el]))
	}
	return nil
}

func parseElementType(s string) (changeset.Type, error) {
	switch t := changeset.Type(s); t {
	case changeset.TypeAdd, changeset.TypeModify, changeset.TypeDelete:
		return t, nil
	case "":
		return changeset.TypeModify, nil
	}
	return "", fmt.Errorf("unknown element type %q", s)
}

func typeColor(t changeset.Type) *color.Color {
	switch t {
	case changeset.TypeAdd:
		return color.New(color.FgGreen)
	case changeset.TypeDelete:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
