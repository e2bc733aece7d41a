package provider

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/session"
)

// TokenStream adapts an eino message stream to session.TokenSource.
//
// Each chunk may carry text, reasoning and tool call deltas at once; they are
// emitted as separate tokens in that order. Tool call deltas are keyed by id.
// Providers that send the id only on the first delta of a call are matched
// through the delta's Index.
type TokenStream struct {
	reader  *schema.StreamReader[*schema.Message]
	pending []session.Token
	ids     map[int]string
	closed  bool

	// FinishReason is the last finish reason reported by the stream.
	FinishReason string
}

// NewTokenStream wraps reader.
func NewTokenStream(reader *schema.StreamReader[*schema.Message]) *TokenStream {
	return &TokenStream{reader: reader, ids: make(map[int]string)}
}

// Next returns the next token, or io.EOF once the stream is drained.
func (s *TokenStream) Next(ctx context.Context) (session.Token, error) {
	for len(s.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return session.Token{}, err
		}
		if s.closed {
			return session.Token{}, io.EOF
		}

		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			return session.Token{}, io.EOF
		}
		if err != nil {
			return session.Token{}, err
		}
		s.pending = s.tokens(msg)
	}

	tok := s.pending[0]
	s.pending = s.pending[1:]
	return tok, nil
}

func (s *TokenStream) tokens(msg *schema.Message) []session.Token {
	if msg == nil {
		return nil
	}
	var out []session.Token

	if msg.ReasoningContent != "" {
		out = append(out, session.Token{Content: &content.ThinkingContent{Content: msg.ReasoningContent}})
	}
	if msg.Content != "" {
		out = append(out, session.Token{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		out = append(out, session.Token{Content: s.toolCall(tc)})
	}

	if msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason != "" {
		s.FinishReason = msg.ResponseMeta.FinishReason
	}
	return out
}

func (s *TokenStream) toolCall(tc schema.ToolCall) *content.ToolCallContent {
	id := tc.ID
	if id == "" && tc.Index != nil {
		id = s.ids[*tc.Index]
	}
	if id == "" && tc.Function.Name != "" {
		// A named delta without a known id starts a new call.
		id = "call_" + ulid.Make().String()
	}
	if id != "" && tc.Index != nil {
		s.ids[*tc.Index] = id
	}
	return content.NewToolCall(id, tc.Function.Name, tc.Function.Arguments)
}

// Close releases the underlying reader.
func (s *TokenStream) Close() error {
	if !s.closed {
		s.closed = true
		s.reader.Close()
	}
	return nil
}
