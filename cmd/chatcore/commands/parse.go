package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/parser"
)

var parseLocation string

var parseCmd = &cobra.Command{
	Use:   "parse [text...]",
	Short: "Parse a request and print its parts",
	Long: `Parse a chat request the way a session would and print the typed parts:
plain text, @agent mentions, #variable references and ~tool references.
Variables are resolved against the configured variables and #file:<path>.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseLocation, "location", string(agent.LocationPanel), "Surface the request comes from (panel|editor|terminal|notebook)")
}

func runParse(cmd *cobra.Command, args []string) error {
	loc, err := agent.ParseLocation(parseLocation)
	if err != nil {
		return err
	}
	ws, err := newWorkspace(appConfig, workDir)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	parsed, err := ws.parser().Parse(cmd.Context(), text, loc, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	dim := color.New(color.FgHiBlack)
	for _, part := range parsed.Parts {
		span := part.Span()
		fmt.Fprintf(out, "%s %s %q\n",
			dim.Sprintf("[%d,%d)", span.Start, span.End),
			partColor(part.Kind()).Sprintf("%-8s", part.Kind()),
			part.Text())
	}

	if parsed.Agent != nil {
		fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint("agent:"), parsed.Agent.Name)
	}
	if ids := parsed.ToolIDs(); len(ids) > 0 {
		fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint("tools:"), strings.Join(ids, ", "))
	}
	for _, v := range parsed.Variables {
		where := "part"
		if v.Part < 0 {
			where = "context"
		}
		fmt.Fprintf(out, "%s %s (%s, %d bytes)\n", color.New(color.Bold).Sprint("variable:"), v.String(), where, len(v.Value))
	}
	return nil
}

func partColor(kind parser.PartKind) *color.Color {
	switch kind {
	case parser.KindAgent:
		return color.New(color.FgMagenta, color.Bold)
	case parser.KindVariable:
		return color.New(color.FgCyan)
	case parser.KindFunction:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Reset)
	}
}
