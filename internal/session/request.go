package session

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/changeset"
	"github.com/opencode-ai/chatcore/internal/content"
	"github.com/opencode-ai/chatcore/internal/parser"
)

// Request is one user turn. It owns its Response and, once a file edit is
// proposed, its change-set.
type Request struct {
	id       string
	parsed   *parser.ParsedRequest
	agent    *agent.Agent
	response *Response
	tree     *changeset.TreeChangeSet

	mu        sync.Mutex
	changeSet *changeset.ChangeSet
	edit      *EditState
}

// EditState is a pending edit of a request. Context is a copy of the session
// context; changing it does not affect the session.
type EditState struct {
	Text    string
	Context []parser.VariableRequest
}

func newRequest(parsed *parser.ParsedRequest, a *agent.Agent, tree *changeset.TreeChangeSet, matchers []*content.Matcher) *Request {
	id := ulid.Make().String()
	return &Request{
		id:       id,
		parsed:   parsed,
		agent:    a,
		response: newResponse(id, matchers),
		tree:     tree,
	}
}

// ID returns the request id.
func (r *Request) ID() string { return r.id }

// Text returns the raw request text.
func (r *Request) Text() string { return r.parsed.Text }

// Parsed returns the parsed request.
func (r *Request) Parsed() *parser.ParsedRequest { return r.parsed }

// Agent returns the agent the request is addressed to.
func (r *Request) Agent() *agent.Agent { return r.agent }

// Response returns the request's response.
func (r *Request) Response() *Response { return r.response }

// ChangeSet returns the request's change-set, or nil if no edit was proposed.
func (r *Request) ChangeSet() *changeset.ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changeSet
}

// EnsureChangeSet returns the request's change-set, creating it and
// registering it with the session view on first use.
func (r *Request) EnsureChangeSet() *changeset.ChangeSet {
	r.mu.Lock()
	if r.changeSet != nil {
		cs := r.changeSet
		r.mu.Unlock()
		return cs
	}
	cs := changeset.New(r.parsed.Text)
	r.changeSet = cs
	r.mu.Unlock()

	if r.tree != nil {
		r.tree.Track(cs)
		r.tree.Schedule()
	}
	return cs
}

func (r *Request) adopt(cs *changeset.ChangeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changeSet = cs
}

// StartEdit begins editing the request with a copy of sessionContext.
func (r *Request) StartEdit(sessionContext []parser.VariableRequest) *EditState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edit = &EditState{
		Text:    r.parsed.Text,
		Context: append([]parser.VariableRequest(nil), sessionContext...),
	}
	return r.edit
}

// Editing returns the pending edit, or nil.
func (r *Request) Editing() *EditState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edit
}

// CancelEdit drops the pending edit.
func (r *Request) CancelEdit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edit = nil
}

func (r *Request) takeEdit() *EditState {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.edit
	r.edit = nil
	return e
}
