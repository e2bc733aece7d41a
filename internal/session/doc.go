// Package session ties the chat core together.
//
// # Sessions and requests
//
// A Session owns a hierarchy of Requests and the aggregated change-set view
// of the active path. AddRequest parses the text, resolves variables and
// appends the request to the active path; SubmitEdit places an edited copy
// next to the original as the active alternative.
//
//	s := session.New(session.Options{Location: agent.LocationPanel, Debounce: 50 * time.Millisecond})
//	defer s.Dispose()
//
//	req, err := s.AddRequest(ctx, "@coder rename #file:main.go")
//	s.Invoke(ctx, myAgent, req)
//
// The first request adopts the synthetic local change-set, so edits proposed
// before any request existed stay visible.
//
// # Responses
//
// A Response is built from streamed tokens. Text tokens accumulate in a
// window that is re-parsed as a whole on every token, so the code blocks of
// a half-received answer are reported as incomplete and later replaced.
// Non-text content (tool calls, thinking) closes the window. Tool call
// fragments merge by id; fragments without id extend the latest call.
//
// Invoke records agent errors and panics on the response and always leaves
// it complete. Cancel completes the response and rejects every pending tool
// call confirmation with the given reason.
//
// # Tool calls
//
// ToolHandler wraps a registered tool for a request. The agent's tool list
// and the session's permission.Policy select the mode:
//
//   - always_allow runs the tool immediately
//   - disabled returns a permission.DeniedResult
//   - confirm waits on the confirmation of the latest tool call with the
//     tool's name; RespondToToolCall resolves it
//
// File edits made by tools land in the request's change-set, created on the
// first edit.
//
// # Events
//
// Every mutation is published on the session's event.Bus: request.added,
// branch.changed, response.updated, response.completed, changeset.updated,
// context.changed, toolcall.confirmation and session.disposed.
package session
