package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/event"
	"github.com/opencode-ai/chatcore/internal/session"
)

var (
	streamEvents bool
	streamChunk  int
	streamPrompt string
)

var streamCmd = &cobra.Command{
	Use:   "stream <file>",
	Short: "Replay a model answer through the streaming content parser",
	Long: `Replay the contents of a file (or - for stdin) as streamed text tokens into
a fresh response and print the resulting content blocks. With --events the
session events mirrored on the message bus are printed as they arrive.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	streamCmd.Flags().BoolVar(&streamEvents, "events", false, "Print session events")
	streamCmd.Flags().IntVar(&streamChunk, "chunk", 8, "Characters per streamed token")
	streamCmd.Flags().StringVar(&streamPrompt, "prompt", "replay", "Request text the answer belongs to")
}

func runStream(cmd *cobra.Command, args []string) error {
	text, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	ws, err := newWorkspace(appConfig, workDir)
	if err != nil {
		return err
	}
	s, stop, err := ws.newSession(appConfig, agent.LocationPanel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	done := make(chan struct{})
	if streamEvents {
		messages, err := s.Bus().Messages(ctx)
		if err != nil {
			stop()
			return err
		}
		go func() {
			defer close(done)
			dim := color.New(color.FgHiBlack)
			for msg := range messages {
				ev, err := event.Decode(msg)
				msg.Ack()
				if err != nil {
					continue
				}
				fmt.Fprintln(out, dim.Sprintf("event %s %v", ev.Type, ev.Data))
			}
		}()
	} else {
		close(done)
	}

	req, err := s.AddRequest(ctx, streamPrompt)
	if err != nil {
		stop()
		return err
	}
	replay := &session.StreamAgent{
		Name: "replay",
		Open: func(context.Context, *session.Request) (session.TokenSource, error) {
			return session.TextTokens(chunks(text, streamChunk)...), nil
		},
	}
	s.Invoke(ctx, replay, req)

	stop()
	cancel()
	<-done

	resp := req.Response()
	for _, c := range resp.Contents() {
		printContent(out, c)
	}

	if err := resp.Err(); err != nil {
		return err
	}
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// chunks splits text into pieces of n runes.
func chunks(text string, n int) []string {
	if n <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/n+1)
	for i := 0; i < len(runes); i += n {
		out = append(out, string(runes[i:min(i+n, len(runes))]))
	}
	return out
}

func printContent(w io.Writer, c content.Content) {
	label := string(c.Kind())
	if code, ok := c.(*content.CodeContent); ok {
		label = fmt.Sprintf("code(%s)", code.Language)
		if code.Incomplete {
			label += " incomplete"
		}
	}
	fmt.Fprintln(w, kindColor(c.Kind()).Sprintf("── %s", label))

	if s, ok := content.DisplayString(c); ok {
		fmt.Fprintln(w, strings.TrimRight(s, "\n"))
	} else if s, ok := content.AsString(c); ok {
		fmt.Fprintln(w, strings.TrimRight(s, "\n"))
	}
}

func kindColor(kind content.Kind) *color.Color {
	switch kind {
	case content.KindCode:
		return color.New(color.FgGreen, color.Bold)
	case content.KindThinking:
		return color.New(color.FgHiBlack)
	case content.KindToolCall:
		return color.New(color.FgYellow)
	case content.KindError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}
