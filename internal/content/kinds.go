package content

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// TextContent is raw model text that was not classified further.
type TextContent struct {
	Content string
}

// Kind returns KindText.
func (c *TextContent) Kind() Kind { return KindText }

// AsString returns the text sent to a model.
func (c *TextContent) AsString() string { return c.Content }

// Merge absorbs next when it continues this content.
func (c *TextContent) Merge(next Content) bool {
	n, ok := next.(*TextContent)
	if !ok {
		return false
	}
	c.Content += n.Content
	return true
}

// ToModelMessage converts the content into an assistant message.
func (c *TextContent) ToModelMessage() *schema.Message {
	return schema.AssistantMessage(c.Content, nil)
}

// MarkdownContent is prose rendered as markdown.
type MarkdownContent struct {
	Content string
}

// Kind returns KindMarkdown.
func (c *MarkdownContent) Kind() Kind { return KindMarkdown }

// AsString returns the text sent to a model.
func (c *MarkdownContent) AsString() string { return c.Content }

// Merge absorbs next when it continues this content.
func (c *MarkdownContent) Merge(next Content) bool {
	n, ok := next.(*MarkdownContent)
	if !ok {
		return false
	}
	c.Content += n.Content
	return true
}

// ToModelMessage converts the content into an assistant message.
func (c *MarkdownContent) ToModelMessage() *schema.Message {
	return schema.AssistantMessage(c.Content, nil)
}

// CodeContent is a fenced code block. Incomplete is set while the closing
// fence has not arrived yet.
type CodeContent struct {
	Code       string
	Language   string
	Incomplete bool
}

// Kind returns KindCode.
func (c *CodeContent) Kind() Kind { return KindCode }

// AsString returns the text sent to a model.
func (c *CodeContent) AsString() string {
	return "```" + c.Language + "\n" + c.Code + "\n```"
}

// AsDisplayString returns the text shown to the user.
func (c *CodeContent) AsDisplayString() string {
	lang := c.Language
	if lang == "" {
		lang = "text"
	}
	return fmt.Sprintf("code[%s] %d lines", lang, strings.Count(c.Code, "\n")+1)
}

// Merge accumulates code of the same language.
func (c *CodeContent) Merge(next Content) bool {
	n, ok := next.(*CodeContent)
	if !ok || n.Language != c.Language {
		return false
	}
	c.Code += n.Code
	c.Incomplete = n.Incomplete
	return true
}

// ToModelMessage converts the content into an assistant message.
func (c *CodeContent) ToModelMessage() *schema.Message {
	return schema.AssistantMessage(c.AsString(), nil)
}

// ThinkingContent is model reasoning streamed separately from the answer.
type ThinkingContent struct {
	Content   string
	Signature string
}

// Kind returns KindThinking.
func (c *ThinkingContent) Kind() Kind { return KindThinking }

// AsString returns the text sent to a model.
func (c *ThinkingContent) AsString() string { return c.Content }

// Merge absorbs next when it continues this content.
func (c *ThinkingContent) Merge(next Content) bool {
	n, ok := next.(*ThinkingContent)
	if !ok {
		return false
	}
	c.Content += n.Content
	if n.Signature != "" {
		c.Signature = n.Signature
	}
	return true
}

// ToModelMessage converts the content into an assistant message.
func (c *ThinkingContent) ToModelMessage() *schema.Message {
	return &schema.Message{Role: schema.Assistant, ReasoningContent: c.Content}
}

// ProgressContent reports a step the agent is working on.
type ProgressContent struct {
	Message string
	Done    bool
}

// Kind returns KindProgress.
func (c *ProgressContent) Kind() Kind { return KindProgress }

// AsDisplayString returns the text shown to the user.
func (c *ProgressContent) AsDisplayString() string { return c.Message }

// ErrorContent records a failure surfaced into the response.
type ErrorContent struct {
	Err error
}

// Kind returns KindError.
func (c *ErrorContent) Kind() Kind { return KindError }

// AsString returns the text sent to a model.
func (c *ErrorContent) AsString() string {
	if c.Err == nil {
		return "error"
	}
	return c.Err.Error()
}

// InformationalContent is a notice shown to the user but never sent to a
// model.
type InformationalContent struct {
	Content string
}

// Kind returns KindInformational.
func (c *InformationalContent) Kind() Kind { return KindInformational }

// AsDisplayString returns the text shown to the user.
func (c *InformationalContent) AsDisplayString() string { return c.Content }

// CommandContent offers the user an action to run.
type CommandContent struct {
	Command string
	Label   string
	Args    []string
}

// Kind returns KindCommand.
func (c *CommandContent) Kind() Kind { return KindCommand }

// AsDisplayString returns the text shown to the user.
func (c *CommandContent) AsDisplayString() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Command
}

// HorizontalLayoutContent groups blocks rendered side by side.
type HorizontalLayoutContent struct {
	Items []Content
}

// Kind returns KindHorizontal.
func (c *HorizontalLayoutContent) Kind() Kind { return KindHorizontal }

// AsString returns the text sent to a model.
func (c *HorizontalLayoutContent) AsString() string {
	parts := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if s, ok := AsString(item); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// QuestionContent asks the user to pick among options.
type QuestionContent struct {
	Question string
	Options  []string
	Selected string
}

// Kind returns KindQuestion.
func (c *QuestionContent) Kind() Kind { return KindQuestion }

// AsString returns the text sent to a model.
func (c *QuestionContent) AsString() string {
	if c.Selected != "" {
		return c.Question + " " + c.Selected
	}
	return c.Question
}

// Answered reports whether an option was selected.
func (c *QuestionContent) Answered() bool { return c.Selected != "" }
