// Package tools defines the tools the LLM may call during orchestration.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/booksage/booksage/ai/llm"
)

// Tool is an executable function exposed to the LLM.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the tool input.
	Parameters() string
	// Run executes the tool with a JSON-encoded input.
	Run(ctx context.Context, input string) (string, error)
}

// Registry holds the registered tools and dispatches calls against them.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// Descriptors returns the tool descriptors in registration order.
func (r *Registry) Descriptors() []llm.ToolDescriptor {
	out := make([]llm.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, llm.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// Dispatch resolves one tool call to a textual result. Failures never
// propagate: an unknown tool name and any tool error both become
// descriptive result text fed back to the LLM.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) string {
	name := call.Function.Name
	t, ok := r.tools[name]
	if !ok {
		slog.Warn("tools: unknown tool requested", "tool", name)
		return fmt.Sprintf("Unknown tool: %s", name)
	}

	result, err := t.Run(ctx, call.Function.Arguments)
	if err != nil {
		slog.Warn("tools: tool run failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool error %s: %v", name, err)
	}
	return result
}
