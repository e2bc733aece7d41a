package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/internal/session"
)

const (
	// MaxSteps bounds the model/tool round trips of one request.
	MaxSteps = 25
	// MaxRetries is the maximum number of retries for opening a stream.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
)

// ErrMaxSteps is returned when the model keeps calling tools past MaxSteps.
var ErrMaxSteps = errors.New("maximum steps reached")

// NewRetryBackoff creates the exponential backoff with jitter used when a
// stream cannot be opened.
func NewRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// ModelAgent answers requests with an eino chat model. Tool calls in the
// streamed answer go through the session's confirmation policy and their
// results are sent back to the model until it stops calling tools.
type ModelAgent struct {
	Name  string
	Model model.ToolCallingChatModel

	// MaxSteps defaults to MaxSteps.
	MaxSteps int
	// Retry defaults to NewRetryBackoff.
	Retry   func(ctx context.Context) backoff.BackOff
	Options []model.Option
}

// ID returns the agent name.
func (a *ModelAgent) ID() string { return a.Name }

// Invoke runs model steps for req until the model stops calling tools.
func (a *ModelAgent) Invoke(ctx context.Context, s *session.Session, req *session.Request) error {
	log := logging.Component("provider")

	chatModel := a.Model
	if tools := toolInfos(s, req); len(tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(tools)
		if err != nil {
			return fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = MaxSteps
	}

	resp := req.Response()
	history := History(s, req)
	var repeats repeatDetector

	for step := 0; ; step++ {
		if step >= maxSteps {
			return ErrMaxSteps
		}

		msgs := append(append([]*schema.Message(nil), history...), ToModelMessages(resp)...)
		stream, err := a.open(ctx, chatModel, msgs)
		if err != nil {
			return err
		}

		before := len(resp.ToolCalls())
		err = resp.ApplyStream(ctx, stream)
		stream.Close()
		if err != nil {
			return err
		}

		log.Debug().
			Str("request", req.ID()).
			Int("step", step).
			Str("finish", stream.FinishReason).
			Msg("model step finished")

		calls := resp.ToolCalls()
		if len(calls) == before {
			return nil
		}
		for _, tc := range calls[before:] {
			if err := repeats.observe(tc.Name, tc.Arguments); err != nil {
				return err
			}
		}
		if err := s.RunToolCalls(ctx, req); err != nil {
			return err
		}
	}
}

func (a *ModelAgent) open(ctx context.Context, m model.ToolCallingChatModel, msgs []*schema.Message) (*TokenStream, error) {
	newBackoff := a.Retry
	if newBackoff == nil {
		newBackoff = NewRetryBackoff
	}

	var reader *schema.StreamReader[*schema.Message]
	op := func() error {
		var err error
		reader, err = m.Stream(ctx, msgs, a.Options...)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logging.Component("provider").Warn().Err(err).Dur("retryIn", wait).Msg("failed to open stream")
	}
	if err := backoff.RetryNotify(op, newBackoff(ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}
	return NewTokenStream(reader), nil
}

// toolInfos lists the registered tools the request's agent may call.
func toolInfos(s *session.Session, req *session.Request) []*schema.ToolInfo {
	var infos []*schema.ToolInfo
	for _, d := range s.Tools().List() {
		if req.Agent().ToolEnabled(d.ID) {
			infos = append(infos, d.Info())
		}
	}
	return infos
}
