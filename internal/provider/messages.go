package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/permission"
	"github.com/opencode-ai/chatcore/internal/session"
	"github.com/opencode-ai/chatcore/internal/tool"
)

// ToModelMessages converts a response into eino messages. Finished tool calls
// are followed by a tool message carrying their result.
func ToModelMessages(resp *session.Response) []*schema.Message {
	var out []*schema.Message
	for _, c := range resp.Contents() {
		out = append(out, content.ModelMessages([]content.Content{c})...)
		if tc, ok := c.(*content.ToolCallContent); ok && tc.Finished {
			out = append(out, schema.ToolMessage(ResultText(tc.Result), tc.ID))
		}
	}
	return out
}

// UserMessage renders a request as the user turn, with resolved variables
// appended as attachments.
func UserMessage(req *session.Request) *schema.Message {
	var sb strings.Builder
	sb.WriteString(req.Text())
	for _, v := range req.Parsed().Variables {
		fmt.Fprintf(&sb, "\n\n<variable name=%q>\n%s\n</variable>", v.String(), v.Value)
	}
	return schema.UserMessage(sb.String())
}

// History builds the message list for req: the agent prompt, then every
// earlier request on the active path with its response, then req itself.
func History(s *session.Session, req *session.Request) []*schema.Message {
	var msgs []*schema.Message
	if prompt := req.Agent().Prompt; prompt != "" {
		msgs = append(msgs, schema.SystemMessage(prompt))
	}
	for _, prev := range s.Requests() {
		if prev == req {
			break
		}
		msgs = append(msgs, UserMessage(prev))
		msgs = append(msgs, ToModelMessages(prev.Response())...)
	}
	return append(msgs, UserMessage(req))
}

// ResultText renders a tool result for the model.
func ResultText(result any) string {
	switch r := result.(type) {
	case nil:
		return ""
	case string:
		return r
	case *tool.Result:
		return r.Output
	case permission.DeniedResult:
		return r.Message
	case error:
		return "Error: " + r.Error()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(data)
}
