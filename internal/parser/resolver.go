package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/afero"
)

// ErrUnresolved is returned by a resolver that does not know a variable.
var ErrUnresolved = errors.New("variable not resolved")

// VariableRequest names a variable and its optional argument.
type VariableRequest struct {
	Name string `json:"name"`
	Arg  string `json:"arg,omitempty"`
}

// String renders the reference as typed, e.g. "#file:main.go".
func (r VariableRequest) String() string {
	if r.Arg == "" {
		return "#" + r.Name
	}
	return "#" + r.Name + ":" + r.Arg
}

// ResolvedVariable is a resolved reference.
type ResolvedVariable struct {
	VariableRequest
	Value string `json:"value"`

	// Part is the index into ParsedRequest.Parts, or -1 for session context.
	Part int `json:"part"`
}

// VariableResolver resolves variable references. Unknown variables yield an
// error wrapping ErrUnresolved.
type VariableResolver interface {
	ResolveVariable(ctx context.Context, req VariableRequest) (string, error)
}

// ResolverFunc adapts a function to VariableResolver.
type ResolverFunc func(ctx context.Context, req VariableRequest) (string, error)

// ResolveVariable calls f.
func (f ResolverFunc) ResolveVariable(ctx context.Context, req VariableRequest) (string, error) {
	return f(ctx, req)
}

// namer is implemented by resolvers that can list their variables.
type namer interface {
	Names() []string
}

// StaticResolver serves fixed values. The argument is ignored.
type StaticResolver map[string]string

// ResolveVariable returns the configured value for the name.
func (s StaticResolver) ResolveVariable(_ context.Context, req VariableRequest) (string, error) {
	if v, ok := s[req.Name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnresolved, req.Name)
}

// Names returns the variable names, sorted.
func (s StaticResolver) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileResolver serves #file:path with the content of path.
type FileResolver struct {
	Fs afero.Fs
}

// ResolveVariable reads the file named by the argument.
func (f FileResolver) ResolveVariable(_ context.Context, req VariableRequest) (string, error) {
	if req.Name != "file" {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, req.Name)
	}
	if req.Arg == "" {
		return "", fmt.Errorf("#file requires a path")
	}
	data, err := afero.ReadFile(f.Fs, req.Arg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Names lists the single variable this resolver serves.
func (f FileResolver) Names() []string { return []string{"file"} }

// Chain tries resolvers in order. A resolver returning ErrUnresolved passes
// the request on; any other error stops the chain.
type Chain []VariableResolver

// ResolveVariable tries each resolver in order.
func (c Chain) ResolveVariable(ctx context.Context, req VariableRequest) (string, error) {
	for _, r := range c {
		v, err := r.ResolveVariable(ctx, req)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrUnresolved) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnresolved, req.Name)
}

// Names merges the names of every resolver that lists them.
func (c Chain) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range c {
		n, ok := r.(namer)
		if !ok {
			continue
		}
		for _, name := range n.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
