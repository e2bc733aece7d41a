package session

import (
	"context"
	"fmt"
	"io"
)

// Agent produces the response to a request. Invoke streams into
// req.Response(); returning an error records it on the response.
type Agent interface {
	ID() string
	Invoke(ctx context.Context, s *Session, req *Request) error
}

// AgentFunc adapts a function to Agent.
type AgentFunc struct {
	Name string
	Fn   func(ctx context.Context, s *Session, req *Request) error
}

// ID returns the agent name.
func (a AgentFunc) ID() string { return a.Name }

// Invoke calls Fn.
func (a AgentFunc) Invoke(ctx context.Context, s *Session, req *Request) error {
	return a.Fn(ctx, s, req)
}

// StreamAgent answers every request by draining the token source returned by
// Open. Tool calls in the stream are executed through the session's
// confirmation policy once the stream ends.
type StreamAgent struct {
	Name string
	Open func(ctx context.Context, req *Request) (TokenSource, error)
}

// ID returns the agent name.
func (a *StreamAgent) ID() string { return a.Name }

// Invoke applies the opened stream to the response, then runs its tool
// calls.
func (a *StreamAgent) Invoke(ctx context.Context, s *Session, req *Request) error {
	src, err := a.Open(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	resp := req.Response()
	if err := resp.ApplyStream(ctx, src); err != nil {
		return err
	}
	return s.RunToolCalls(ctx, req)
}
