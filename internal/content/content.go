// Package content defines the typed blocks a chat response is made of and the
// delimiter-based parser that classifies streamed text into them.
package content

import (
	"github.com/cloudwego/eino/schema"
)

// Kind tags a content block.
type Kind string

const (
	KindText          Kind = "text"
	KindMarkdown      Kind = "markdownContent"
	KindCode          Kind = "code"
	KindToolCall      Kind = "toolCall"
	KindThinking      Kind = "thinking"
	KindProgress      Kind = "progress"
	KindError         Kind = "error"
	KindInformational Kind = "informational"
	KindCommand       Kind = "command"
	KindHorizontal    Kind = "horizontal"
	KindQuestion      Kind = "question"
)

// Content is one block of a response.
type Content interface {
	Kind() Kind
}

// AsStringer is implemented by content with a plain-text rendering used when
// the response is copied or sent back to a model.
type AsStringer interface {
	AsString() string
}

// DisplayStringer is implemented by content with a dedicated short rendering
// for lists and logs.
type DisplayStringer interface {
	AsDisplayString() string
}

// Merger is implemented by content that can absorb a following block of the
// same kind. Merge reports whether next was absorbed.
type Merger interface {
	Merge(next Content) bool
}

// ModelMessager is implemented by content that is replayed to a model.
type ModelMessager interface {
	ToModelMessage() *schema.Message
}

// AsString renders c as plain text when it supports it.
func AsString(c Content) (string, bool) {
	if s, ok := c.(AsStringer); ok {
		return s.AsString(), true
	}
	return "", false
}

// DisplayString renders c for display, falling back to AsString.
func DisplayString(c Content) (string, bool) {
	if s, ok := c.(DisplayStringer); ok {
		return s.AsDisplayString(), true
	}
	return AsString(c)
}

// Merge folds next into prev when both have the same kind and prev can merge.
func Merge(prev, next Content) bool {
	if prev == nil || next == nil || prev.Kind() != next.Kind() {
		return false
	}
	m, ok := prev.(Merger)
	if !ok {
		return false
	}
	return m.Merge(next)
}

// ModelMessages converts every content supporting it, in order.
func ModelMessages(contents []Content) []*schema.Message {
	var out []*schema.Message
	for _, c := range contents {
		if m, ok := c.(ModelMessager); ok {
			if msg := m.ToModelMessage(); msg != nil {
				out = append(out, msg)
			}
		}
	}
	return out
}
