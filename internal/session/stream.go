package session

import (
	"context"
	"errors"
	"io"

	"github.com/opencode-ai/chatcore/internal/content"
)

// Token is one streamed unit. Exactly one of Text and Content is set.
type Token struct {
	Text    string
	Content content.Content
}

// TokenSource yields tokens until it returns io.EOF.
type TokenSource interface {
	Next(ctx context.Context) (Token, error)
}

// AddToken routes a token to AddText or AddContent.
func (r *Response) AddToken(tok Token) {
	if tok.Content != nil {
		r.AddContent(tok.Content)
		return
	}
	r.AddText(tok.Text)
}

// ApplyStream pulls tokens from src into the response until the source is
// exhausted, ctx is done or the response is canceled. It does not complete
// the response.
func (r *Response) ApplyStream(ctx context.Context, src TokenSource) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if r.IsCanceled() {
			return context.Canceled
		}

		tok, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		r.AddToken(tok)
	}
}

// SliceSource replays a fixed token list.
type SliceSource struct {
	Tokens []Token
	pos    int
}

// TextTokens builds a SliceSource of text tokens.
func TextTokens(chunks ...string) *SliceSource {
	src := &SliceSource{}
	for _, c := range chunks {
		src.Tokens = append(src.Tokens, Token{Text: c})
	}
	return src
}

// Next returns the next token, or io.EOF when none are left.
func (s *SliceSource) Next(ctx context.Context) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	if s.pos >= len(s.Tokens) {
		return Token{}, io.EOF
	}
	tok := s.Tokens[s.pos]
	s.pos++
	return tok, nil
}
