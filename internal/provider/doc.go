// Package provider connects the chat core to eino chat models.
//
// TokenStream turns a *schema.StreamReader[*schema.Message] into session
// tokens: reasoning becomes thinking content, text deltas go through the
// response's incremental parser and tool call deltas become tool call
// content keyed by id.
//
// ModelAgent is a session.Agent backed by a model.ToolCallingChatModel:
//
//	a := &provider.ModelAgent{Name: "model", Model: chatModel}
//	s.Invoke(ctx, a, req)
//
// It binds the tools the request's agent may call, streams the answer into
// the response and, while the model keeps calling tools, runs them through
// the session's confirmation policy and sends the results back. Opening a
// stream is retried with exponential backoff.
//
// History and ToModelMessages convert requests and responses into the eino
// message list.
package provider
