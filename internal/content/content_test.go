package content

import (
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/dlclark/regexp2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func angleMatcher(withIncomplete bool) *Matcher {
	m := &Matcher{
		Start: regexp2.MustCompile(`<<`, regexp2.None),
		End:   regexp2.MustCompile(`>>`, regexp2.None),
		ContentFactory: func(text string) Content {
			return &InformationalContent{Content: text}
		},
	}
	if withIncomplete {
		m.IncompleteContentFactory = func(text string) Content {
			return &ProgressContent{Message: text}
		}
	}
	return m
}

func TestFindFirstMatch_PrefersCompleteOverEarlierIncomplete(t *testing.T) {
	code := CodeMatcher()
	angle := angleMatcher(true)
	text := "<<never closed\n```go\nx := 1\n```\n"

	m, ok := FindFirstMatch([]*Matcher{angle, code}, text)
	require.True(t, ok)
	assert.True(t, m.Complete)
	assert.Same(t, code, m.Matcher)
	assert.Equal(t, len([]rune("<<never closed\n")), m.Start)
}

func TestFindFirstMatch_EarliestIncompleteWhenNothingCompletes(t *testing.T) {
	code := CodeMatcher()
	angle := angleMatcher(true)

	m, ok := FindFirstMatch([]*Matcher{code, angle}, "a <<b ```go\nc")
	require.True(t, ok)
	assert.False(t, m.Complete)
	assert.Same(t, angle, m.Matcher)
	assert.Equal(t, 2, m.Start)
	assert.Equal(t, len([]rune("a <<b ```go\nc")), m.End)
}

func TestFindFirstMatch_IncompleteNeedsFactory(t *testing.T) {
	_, ok := FindFirstMatch([]*Matcher{angleMatcher(false)}, "x << y")
	assert.False(t, ok)

	m, ok := FindFirstMatch([]*Matcher{angleMatcher(false)}, "x << y >> z")
	require.True(t, ok)
	assert.True(t, m.Complete)
	assert.Equal(t, 2, m.Start)
	assert.Equal(t, 9, m.End)
}

func TestFindFirstMatch_RuneOffsets(t *testing.T) {
	m, ok := FindFirstMatch([]*Matcher{angleMatcher(false)}, "héllo <<ü>>")
	require.True(t, ok)
	assert.Equal(t, 6, m.Start)
	assert.Equal(t, 11, m.End)
}

func TestParseContents_IncompleteCodeBlock(t *testing.T) {
	got := ParseContents("```typescript\nconsole.log(1);", DefaultMatchers(), DefaultFactory)

	want := []Content{
		&CodeContent{Code: "console.log(1);", Language: "typescript", Incomplete: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseContents() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContents_Mixed(t *testing.T) {
	text := "Here is the fix:\n```go\nfmt.Println(1)\n```\n\n```\nplain\n```\nDone."

	got := ParseContents(text, DefaultMatchers(), DefaultFactory)

	want := []Content{
		&MarkdownContent{Content: "Here is the fix:\n"},
		&CodeContent{Code: "fmt.Println(1)", Language: "go"},
		&CodeContent{Code: "plain"},
		&MarkdownContent{Content: "\nDone."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseContents() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContents_BlankAndEmpty(t *testing.T) {
	assert.Empty(t, ParseContents("", DefaultMatchers(), DefaultFactory))
	assert.Empty(t, ParseContents("  \n ", DefaultMatchers(), DefaultFactory))

	got := ParseContents("no fences here", nil, DefaultFactory)
	if diff := cmp.Diff([]Content{&MarkdownContent{Content: "no fences here"}}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContents_IncompleteMatchWithPreText(t *testing.T) {
	m := angleMatcher(true)
	got := ParseContents("a <<b", []*Matcher{m}, DefaultFactory)
	want := []Content{
		&MarkdownContent{Content: "a "},
		&ProgressContent{Message: "<<b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	md := &MarkdownContent{Content: "a"}
	assert.True(t, Merge(md, &MarkdownContent{Content: "b"}))
	assert.Equal(t, "ab", md.Content)

	assert.False(t, Merge(md, &TextContent{Content: "c"}), "different kinds never merge")
	assert.False(t, Merge(&ProgressContent{}, &ProgressContent{}), "progress has no merge")

	code := &CodeContent{Code: "x", Language: "go"}
	assert.False(t, Merge(code, &CodeContent{Code: "y", Language: "js"}))
	assert.True(t, Merge(code, &CodeContent{Code: "y", Language: "go"}))
	assert.Equal(t, "xy", code.Code)

	th := &ThinkingContent{Content: "hmm"}
	assert.True(t, Merge(th, &ThinkingContent{Content: "...", Signature: "sig"}))
	assert.Equal(t, "hmm...", th.Content)
	assert.Equal(t, "sig", th.Signature)
}

func TestToolCallContent_Merge(t *testing.T) {
	call := NewToolCall("call_1", "read_file", `{"pa`)

	assert.True(t, call.Merge(NewToolCall("call_1", "", `th":`)))
	assert.True(t, call.Merge(NewToolCall("", "", `"/a"}`)))
	assert.False(t, call.Merge(NewToolCall("call_2", "read_file", `{}`)))
	assert.False(t, call.Merge(NewToolCall("", "", "")))

	assert.Equal(t, `{"path":"/a"}`, call.Arguments)
	assert.Equal(t, "read_file", call.Name)

	done := NewToolCall("call_1", "", "")
	done.Complete("ok")
	assert.True(t, call.Merge(done))
	assert.True(t, call.Finished)
	assert.Equal(t, "ok", call.Result)
}

func TestToolCallContent_Confirmation(t *testing.T) {
	call := NewToolCall("call_1", "shell", "{}")
	assert.False(t, call.ConfirmationPending())

	conf := call.Confirmation()
	assert.Same(t, conf, call.Confirmation())
	assert.True(t, call.ConfirmationPending())

	require.NoError(t, call.CancelConfirmation("stop"))
	assert.Error(t, call.Confirm())
	assert.Error(t, call.Deny())
	assert.False(t, call.ConfirmationPending())
}

func TestCapabilities(t *testing.T) {
	s, ok := AsString(&CodeContent{Code: "x", Language: "go"})
	assert.True(t, ok)
	assert.Equal(t, "```go\nx\n```", s)

	_, ok = AsString(&ProgressContent{Message: "working"})
	assert.False(t, ok)
	s, ok = DisplayString(&ProgressContent{Message: "working"})
	assert.True(t, ok)
	assert.Equal(t, "working", s)

	s, ok = DisplayString(&ErrorContent{Err: errors.New("boom")})
	assert.True(t, ok)
	assert.Equal(t, "boom", s)

	s, _ = AsString(&HorizontalLayoutContent{Items: []Content{
		&MarkdownContent{Content: "left"},
		&CommandContent{Command: "run"},
		&MarkdownContent{Content: "right"},
	}})
	assert.Equal(t, "left\nright", s)

	q := &QuestionContent{Question: "Continue?", Options: []string{"yes", "no"}}
	assert.False(t, q.Answered())
	q.Selected = "yes"
	assert.Equal(t, "Continue? yes", q.AsString())
}

func TestModelMessages(t *testing.T) {
	msgs := ModelMessages([]Content{
		&ThinkingContent{Content: "plan"},
		&MarkdownContent{Content: "hello"},
		&ProgressContent{Message: "skipped"},
		NewToolCall("call_1", "read_file", `{"path":"/a"}`),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "plan", msgs[0].ReasoningContent)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[2].ToolCalls[0].ID)
	assert.Equal(t, "read_file", msgs[2].ToolCalls[0].Function.Name)
	assert.Equal(t, `{"path":"/a"}`, msgs[2].ToolCalls[0].Function.Arguments)
}
