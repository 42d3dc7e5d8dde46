// Package tools implements the VFS-facing tool catalog the Agent Loop
// dispatches tool_use blocks against, plus the plan/execute mode gate.
package tools

import (
	"context"
	"sync"

	"github.com/chebykinn/browser-code/internal/providers"
)

// Tool is one LLM-invocable function. Implementations are stateless
// apart from the per-tab dependencies captured at construction time
// (the VFS, the page controller, the todo store) — one Registry is built
// per tab, not shared globally, since every tool operates against the
// page bound at run start (spec §4.C.2).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry holds the tool set available to one tab's agent loop.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string // registration order, for stable ProviderDefs output
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Unregister removes a tool by name, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.tools[n])
	}
	return out
}

// ProviderDefs converts every registered tool into the LLM-facing
// ToolDefinition schema.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	tools := r.List()
	defs := make([]providers.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute dispatches to a named tool's Execute, or an error Result if the
// tool does not exist — tool dispatch never panics the loop (spec §4.C.2:
// "the loop does not throw").
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	t, ok := r.Get(name)
	if !ok {
		return ErrorResult("unknown tool: " + name)
	}
	return t.Execute(ctx, args)
}
