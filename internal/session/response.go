package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/event"
	"github.com/opencode-ai/chatcore/internal/permission"
)

// ErrToolCallNotFound is returned when a confirmation is requested for a tool
// call the response does not contain.
var ErrToolCallNotFound = errors.New("tool call not found in response")

// ToolCallResolution reports how a tool call confirmation ended.
type ToolCallResolution struct {
	ToolCall *content.ToolCallContent
	Outcome  permission.Outcome
	Reason   string
}

// Response is the streamed answer to a Request.
type Response struct {
	id        string
	requestID string

	ctx    context.Context
	cancel context.CancelFunc

	matchers []*content.Matcher

	mu       sync.Mutex
	contents []content.Content
	// contents[windowStart:] is the re-parse window built from text.
	windowStart int
	text        strings.Builder

	complete bool
	canceled bool
	failed   bool
	err      error
	waiting  int

	onChange   event.Emitter[*Response]
	onResolved event.Emitter[ToolCallResolution]
}

func newResponse(requestID string, matchers []*content.Matcher) *Response {
	ctx, cancel := context.WithCancel(context.Background())
	if matchers == nil {
		matchers = content.DefaultMatchers()
	}
	return &Response{
		id:        ulid.Make().String(),
		requestID: requestID,
		ctx:       ctx,
		cancel:    cancel,
		matchers:  matchers,
	}
}

// ID returns the response id.
func (r *Response) ID() string { return r.id }

// RequestID returns the id of the owning request.
func (r *Response) RequestID() string { return r.requestID }

// Context is canceled when the response is canceled or completes.
func (r *Response) Context() context.Context { return r.ctx }

// OnDidChange registers fn for every content or state change.
func (r *Response) OnDidChange(fn func(*Response)) func() {
	return r.onChange.On(fn)
}

// OnToolCallResolved registers fn for confirmations awaited by this response.
func (r *Response) OnToolCallResolved(fn func(ToolCallResolution)) func() {
	return r.onResolved.On(fn)
}

// Contents returns a snapshot of the content items.
func (r *Response) Contents() []content.Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]content.Content(nil), r.contents...)
}

// Kinds returns the kind of every content item, in order.
func (r *Response) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.contents))
	for i, c := range r.contents {
		kinds[i] = string(c.Kind())
	}
	return kinds
}

// String joins the string form of every content item that has one.
func (r *Response) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var parts []string
	for _, c := range r.contents {
		if s, ok := content.AsString(c); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// IsComplete reports whether the response was completed or canceled.
func (r *Response) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.complete
}

// IsCanceled reports whether Cancel ended the response.
func (r *Response) IsCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// IsError reports whether a failure was recorded.
func (r *Response) IsError() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Err returns the recorded failure, if any.
func (r *Response) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// IsWaitingForInput reports whether a tool call awaits confirmation.
func (r *Response) IsWaitingForInput() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting > 0 && !r.complete
}

// AddText appends streamed text. The text received since the last non-text
// content is re-parsed as a whole and replaces the tail of the content list.
func (r *Response) AddText(text string) {
	if text == "" {
		return
	}
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.text.WriteString(text)
	parsed := content.ParseContents(r.text.String(), r.matchers, content.DefaultFactory)
	r.contents = append(r.contents[:r.windowStart], parsed...)
	r.mu.Unlock()

	r.onChange.Emit(r)
}

// AddContent appends non-text content and closes the current text window.
// Tool calls with an id merge into the call with that id; id-less fragments
// merge into the most recent tool call. Other content merges into the last
// item when it has the same kind.
func (r *Response) AddContent(c content.Content) {
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.addLocked(c)
	r.text.Reset()
	r.windowStart = len(r.contents)
	r.mu.Unlock()

	r.onChange.Emit(r)
}

func (r *Response) addLocked(c content.Content) {
	if tc, ok := c.(*content.ToolCallContent); ok {
		var target *content.ToolCallContent
		if tc.ID != "" {
			target = r.toolCallLocked(func(existing *content.ToolCallContent) bool {
				return existing.ID == tc.ID && !existing.Finished
			})
		} else if tc.Arguments != "" {
			target = r.toolCallLocked(func(*content.ToolCallContent) bool { return true })
		}
		if target != nil && target.Merge(tc) {
			return
		}
		r.contents = append(r.contents, c)
		return
	}

	if n := len(r.contents); n > 0 && content.Merge(r.contents[n-1], c) {
		return
	}
	r.contents = append(r.contents, c)
}

// toolCallLocked scans backward for a tool call matching pred.
func (r *Response) toolCallLocked(pred func(*content.ToolCallContent) bool) *content.ToolCallContent {
	for i := len(r.contents) - 1; i >= 0; i-- {
		if tc, ok := r.contents[i].(*content.ToolCallContent); ok && pred(tc) {
			return tc
		}
	}
	return nil
}

// ToolCall returns the tool call with the given id.
func (r *Response) ToolCall(id string) (*content.ToolCallContent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tc := r.toolCallLocked(func(c *content.ToolCallContent) bool { return c.ID == id })
	return tc, tc != nil
}

// ToolCalls returns every tool call in order.
func (r *Response) ToolCalls() []*content.ToolCallContent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*content.ToolCallContent
	for _, c := range r.contents {
		if tc, ok := c.(*content.ToolCallContent); ok {
			out = append(out, tc)
		}
	}
	return out
}

// AddProgress appends a progress message and returns it for later updates.
func (r *Response) AddProgress(message string) *content.ProgressContent {
	p := &content.ProgressContent{Message: message}
	r.AddContent(p)
	return p
}

// UpdateProgress changes a progress item added with AddProgress.
func (r *Response) UpdateProgress(p *content.ProgressContent, message string, done bool) {
	r.mu.Lock()
	p.Message = message
	p.Done = done
	r.mu.Unlock()

	r.onChange.Emit(r)
}

// Complete marks the response complete. Later content is ignored.
func (r *Response) Complete() {
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.complete = true
	r.mu.Unlock()

	r.cancel()
	r.onChange.Emit(r)
}

// Cancel marks the response complete and canceled, and rejects every
// outstanding tool call confirmation with reason.
func (r *Response) Cancel(reason string) {
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.canceled = true
	r.complete = true
	var pending []*content.ToolCallContent
	for _, c := range r.contents {
		if tc, ok := c.(*content.ToolCallContent); ok && !tc.Finished {
			pending = append(pending, tc)
		}
	}
	r.mu.Unlock()

	for _, tc := range pending {
		if tc.Confirmation().Pending() {
			_ = tc.CancelConfirmation(reason)
		}
	}
	r.cancel()
	r.onChange.Emit(r)
}

// Error records err as error content and completes the response.
func (r *Response) Error(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.failed = true
	r.err = err
	r.contents = append(r.contents, &content.ErrorContent{Err: err})
	r.windowStart = len(r.contents)
	r.text.Reset()
	r.complete = true
	r.mu.Unlock()

	r.cancel()
	r.onChange.Emit(r)
}

func (r *Response) setWaiting(delta int) {
	r.mu.Lock()
	r.waiting += delta
	r.mu.Unlock()
	r.onChange.Emit(r)
}

func (r *Response) completeToolCall(tc *content.ToolCallContent, result any) {
	r.mu.Lock()
	tc.Complete(result)
	r.mu.Unlock()
	r.onChange.Emit(r)
}

func (r *Response) dispose() {
	r.cancel()
	r.onChange.Dispose()
	r.onResolved.Dispose()
}
