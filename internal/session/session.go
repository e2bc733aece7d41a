package session

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/changeset"
	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/event"
	"github.com/opencode-ai/chatcore/internal/hierarchy"
	"github.com/opencode-ai/chatcore/internal/logging"
	"github.com/opencode-ai/chatcore/internal/parser"
	"github.com/opencode-ai/chatcore/internal/permission"
	"github.com/opencode-ai/chatcore/internal/tool"
)

var (
	// ErrRequestNotFound is returned for an unknown request id.
	ErrRequestNotFound = errors.New("request not found")

	// ErrToolNotFound is returned for an unknown tool id.
	ErrToolNotFound = errors.New("tool not found")

	// ErrNotEditing is returned when submitting a request that has no
	// pending edit.
	ErrNotEditing = errors.New("request is not being edited")
)

// Options configures a Session. Zero values select defaults.
type Options struct {
	ID       string
	Location agent.Location

	Agents    *agent.Registry
	Tools     *tool.Registry
	Variables parser.VariableResolver
	Policy    permission.Policy

	// Fs backs file edits proposed by tools.
	Fs afero.Fs
	// Watcher, when set, marks visible file elements stale on disk changes.
	Watcher *changeset.Watcher

	// Debounce is the change-set recompute window. Zero recomputes
	// synchronously.
	Debounce time.Duration

	Matchers []*content.Matcher
	Bus      *event.Bus
	Settings map[string]any
}

// Session is one conversation.
type Session struct {
	id   string
	opts Options

	parser    *parser.Parser
	hierarchy *hierarchy.Hierarchy[*Request]
	tree      *changeset.TreeChangeSet
	bus       *event.Bus
	ownsBus   bool

	mu       sync.Mutex
	context  []parser.VariableRequest
	settings map[string]any
	subs     []func()
	disposed bool
}

// New creates a session.
func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = ulid.Make().String()
	}
	if opts.Location == "" {
		opts.Location = agent.LocationPanel
	}
	if opts.Agents == nil {
		opts.Agents = agent.NewRegistry()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Tools == nil {
		opts.Tools = tool.DefaultRegistry(opts.Fs)
	}

	s := &Session{
		id:        opts.ID,
		opts:      opts,
		hierarchy: hierarchy.New[*Request](),
		bus:       opts.Bus,
		settings:  make(map[string]any, len(opts.Settings)),
	}
	for k, v := range opts.Settings {
		s.settings[k] = v
	}
	if s.bus == nil {
		s.bus = event.NewBus()
		s.ownsBus = true
	}
	s.parser = parser.New(opts.Agents, opts.Tools, opts.Variables)
	s.tree = changeset.NewTree(changeset.SourceFunc(s.activeChangeSets), opts.Debounce)

	s.subs = append(s.subs,
		s.hierarchy.OnDidChange(func(ev hierarchy.ChangeEvent[*Request]) {
			s.tree.Schedule()
			data := event.BranchData{BranchID: ev.Branch.ID(), Active: ev.Branch.ActiveIndex()}
			if ev.Item != nil {
				data.RequestID = ev.Item.Element().ID()
			}
			s.publish(event.BranchChanged, data)
		}),
		s.tree.OnDidChange(func(elements []changeset.Element) {
			uris := make([]string, len(elements))
			for i, el := range elements {
				uris[i] = el.URI()
			}
			s.publish(event.ChangeSetUpdated, event.ChangeSetData{URIs: uris})
		}),
	)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Location returns the surface the session runs in.
func (s *Session) Location() agent.Location { return s.opts.Location }

// Hierarchy returns the request hierarchy.
func (s *Session) Hierarchy() *hierarchy.Hierarchy[*Request] { return s.hierarchy }

// ChangeSet returns the aggregated change-set view of the active path.
func (s *Session) ChangeSet() *changeset.TreeChangeSet { return s.tree }

// Tools returns the tool registry.
func (s *Session) Tools() *tool.Registry { return s.opts.Tools }

// Bus returns the session event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// Requests returns the requests on the active path, oldest first.
func (s *Session) Requests() []*Request { return s.hierarchy.ActiveRequests() }

// Request finds a request anywhere in the hierarchy.
func (s *Session) Request(id string) (*Request, error) {
	req, ok := s.hierarchy.FindRequest(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return req, nil
}

func (s *Session) activeChangeSets() []*changeset.ChangeSet {
	reqs := s.hierarchy.ActiveRequests()
	out := make([]*changeset.ChangeSet, len(reqs))
	for i, req := range reqs {
		out[i] = req.ChangeSet()
	}
	return out
}

// Context returns a copy of the session context.
func (s *Session) Context() []parser.VariableRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]parser.VariableRequest(nil), s.context...)
}

// AddContext appends variables to the session context.
func (s *Session) AddContext(vars ...parser.VariableRequest) {
	s.mu.Lock()
	s.context = append(s.context, vars...)
	s.mu.Unlock()
	s.publishContext()
}

// RemoveContext removes every entry equal to v.
func (s *Session) RemoveContext(v parser.VariableRequest) bool {
	s.mu.Lock()
	kept := s.context[:0]
	for _, c := range s.context {
		if c != v {
			kept = append(kept, c)
		}
	}
	removed := len(kept) != len(s.context)
	s.context = kept
	s.mu.Unlock()

	if removed {
		s.publishContext()
	}
	return removed
}

// ClearContext empties the session context.
func (s *Session) ClearContext() {
	s.mu.Lock()
	s.context = nil
	s.mu.Unlock()
	s.publishContext()
}

func (s *Session) publishContext() {
	names := make([]string, 0)
	for _, v := range s.Context() {
		names = append(names, v.String())
	}
	s.publish(event.ContextChanged, event.ContextData{Variables: names})
}

// Setting returns a session setting.
func (s *Session) Setting(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok
}

// SetSetting stores a session setting.
func (s *Session) SetSetting(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
}

// AddRequest parses text and appends the request to the active path.
func (s *Session) AddRequest(ctx context.Context, text string) (*Request, error) {
	req, err := s.newRequest(ctx, text, s.Context())
	if err != nil {
		return nil, err
	}

	if local := s.tree.AdoptLocal(); local != nil {
		req.adopt(local)
	}
	s.hierarchy.Append(req)
	s.publish(event.RequestAdded, event.RequestData{RequestID: req.ID(), Text: text, AgentID: req.Agent().Name})
	return req, nil
}

func (s *Session) newRequest(ctx context.Context, text string, sessionContext []parser.VariableRequest) (*Request, error) {
	parsed, err := s.parser.Parse(ctx, text, s.opts.Location, sessionContext)
	if err != nil {
		return nil, err
	}
	a := parsed.Agent
	if a == nil {
		a = s.opts.Agents.Default()
	}

	req := newRequest(parsed, a, s.tree, s.opts.Matchers)
	resp := req.Response()
	resp.OnDidChange(func(r *Response) {
		typ := event.ResponseUpdated
		if r.IsComplete() {
			typ = event.ResponseCompleted
		}
		data := event.ResponseData{
			RequestID:       req.ID(),
			ResponseID:      r.ID(),
			Kinds:           r.Kinds(),
			Complete:        r.IsComplete(),
			Canceled:        r.IsCanceled(),
			WaitingForInput: r.IsWaitingForInput(),
		}
		if err := r.Err(); err != nil {
			data.Error = err.Error()
		}
		s.publish(typ, data)
	})
	resp.OnToolCallResolved(func(res ToolCallResolution) {
		s.publish(event.ToolCallConfirmation, event.ToolCallConfirmationData{
			RequestID:  req.ID(),
			ToolCallID: res.ToolCall.ID,
			Name:       res.ToolCall.Name,
			Outcome:    string(res.Outcome),
			Reason:     res.Reason,
		})
	})
	return req, nil
}

// StartEdit begins editing a request with a copy of the session context.
func (s *Session) StartEdit(requestID string) (*EditState, error) {
	req, err := s.Request(requestID)
	if err != nil {
		return nil, err
	}
	return req.StartEdit(s.Context()), nil
}

// SubmitEdit turns a pending edit into a new request placed next to the
// original as the active alternative. The original request is untouched.
func (s *Session) SubmitEdit(ctx context.Context, requestID string) (*Request, error) {
	orig, err := s.Request(requestID)
	if err != nil {
		return nil, err
	}
	edit := orig.takeEdit()
	if edit == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotEditing, requestID)
	}
	branch, err := s.hierarchy.FindBranch(requestID)
	if err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, edit.Text, edit.Context)
	if err != nil {
		return nil, err
	}
	branch.Add(req)
	s.publish(event.RequestAdded, event.RequestData{RequestID: req.ID(), Text: edit.Text, AgentID: req.Agent().Name})
	return req, nil
}

// RemoveRequest removes a request, with everything after it, from its
// branch.
func (s *Session) RemoveRequest(requestID string) error {
	req, err := s.Request(requestID)
	if err != nil {
		return err
	}
	branch, err := s.hierarchy.FindBranch(requestID)
	if err != nil {
		return err
	}
	req.Response().Cancel("request removed")
	if !branch.RemoveByID(requestID) {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if cs := req.ChangeSet(); cs != nil {
		s.tree.Untrack(cs)
	}
	s.tree.Schedule()
	s.publish(event.RequestRemoved, event.RequestData{RequestID: requestID})
	return nil
}

// Invoke runs a on req. Errors and panics are recorded on the response and
// never returned; the response is always complete afterwards.
func (s *Session) Invoke(ctx context.Context, a Agent, req *Request) {
	resp := req.Response()
	ctx, cancel := mergeCancel(ctx, resp.Context())
	defer cancel()

	log := logging.Component("session")
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error().Str("agent", a.ID()).Str("stack", string(debug.Stack())).Msg("agent panicked")
				err = fmt.Errorf("agent %s panicked: %v", a.ID(), p)
			}
		}()
		return a.Invoke(ctx, s, req)
	}()

	switch {
	case resp.IsCanceled():
	case err != nil:
		log.Warn().Err(err).Str("agent", a.ID()).Str("request", req.ID()).Msg("agent failed")
		resp.Error(err)
	default:
		resp.Complete()
	}
}

// CancelRequest cancels the response of a request.
func (s *Session) CancelRequest(requestID, reason string) error {
	req, err := s.Request(requestID)
	if err != nil {
		return err
	}
	req.Response().Cancel(reason)
	return nil
}

// RespondToToolCall confirms or denies a pending tool call.
func (s *Session) RespondToToolCall(requestID, toolCallID string, confirm bool) error {
	req, err := s.Request(requestID)
	if err != nil {
		return err
	}
	tc, ok := req.Response().ToolCall(toolCallID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolCallNotFound, toolCallID)
	}
	if confirm {
		return tc.Confirm()
	}
	return tc.Deny()
}

// ToolHandler returns the handler an agent calls to run toolID for req. The
// handler applies the agent's tool list and the confirmation policy, and
// hands file edits to the request's change-set.
func (s *Session) ToolHandler(req *Request, toolID string) (tool.Handler, error) {
	d, ok := s.opts.Tools.Get(toolID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}

	mode := s.opts.Policy.ModeFor(toolID)
	if !req.Agent().ToolEnabled(toolID) {
		mode = permission.ModeDisabled
	}
	h := req.Response().ConfirmingHandler(d, mode)

	return func(ctx context.Context, args string) (any, error) {
		var callID string
		if prev, ok := tool.FromContext(ctx); ok {
			callID = prev.CallID
		}
		ctx = tool.WithContext(ctx, &tool.Context{
			SessionID:       s.id,
			RequestID:       req.ID(),
			CallID:          callID,
			Lookup:          s.lookupElement,
			EnsureChangeSet: req.EnsureChangeSet,
			Watcher:         s.opts.Watcher,
			Fs:              s.opts.Fs,
		})
		return h(ctx, args)
	}, nil
}

// lookupElement reads the aggregated view after running any pending
// recompute.
func (s *Session) lookupElement(uri string) (changeset.Element, bool) {
	s.tree.Flush()
	return s.tree.GetElementByURI(uri)
}

// RunToolCalls executes every unfinished tool call of req's response in
// order. Each handler is bound to its own call, so calls sharing a tool name
// are confirmed and completed separately. A failing call is recorded on the
// call and does not stop the rest.
func (s *Session) RunToolCalls(ctx context.Context, req *Request) error {
	resp := req.Response()
	for _, tc := range resp.ToolCalls() {
		if tc.Finished {
			continue
		}
		h, err := s.ToolHandler(req, tc.Name)
		if err != nil {
			resp.completeToolCall(tc, err.Error())
			continue
		}
		result, err := h(tool.WithContext(ctx, &tool.Context{CallID: tc.ID}), tc.Arguments)
		switch {
		case permission.IsCanceledError(err), errors.Is(err, context.Canceled):
			return err
		case err != nil:
			resp.completeToolCall(tc, err.Error())
		case !tc.Finished:
			resp.completeToolCall(tc, result)
		}
	}
	return nil
}

// Dispose cancels running responses and tears down the hierarchy, the
// change-set view and, if the session created it, the bus.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, req := range s.allRequests() {
		req.Response().Cancel("session disposed")
		req.Response().dispose()
	}
	for _, unsubscribe := range subs {
		unsubscribe()
	}
	s.tree.Dispose()
	s.hierarchy.Dispose()

	s.publish(event.SessionDisposed, nil)
	if s.ownsBus {
		if err := s.bus.Close(); err != nil {
			logging.Component("session").Debug().Err(err).Msg("bus close failed")
		}
	}
}

// allRequests collects every request in every branch.
func (s *Session) allRequests() []*Request {
	var out []*Request
	var walk func(b *hierarchy.Branch[*Request])
	walk = func(b *hierarchy.Branch[*Request]) {
		if b == nil {
			return
		}
		for _, item := range b.Items() {
			out = append(out, item.Element())
			walk(item.Next())
		}
	}
	walk(s.hierarchy.Root())
	return out
}

func (s *Session) publish(typ event.EventType, data any) {
	s.bus.PublishSync(event.Event{Type: typ, SessionID: s.id, Data: data})
}

// mergeCancel returns a context canceled when either parent is done.
func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
