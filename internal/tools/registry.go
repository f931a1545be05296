package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
)

// ErrUnknownTool is returned when the model requests a tool name that was
// never registered.
var ErrUnknownTool = errors.New("unknown tool")

// Registry holds the registered tools in registration order.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	names  []string
	byName map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates a registry over the given tools.
// Registration order is preserved in Specs; duplicate names are rejected.
func NewRegistry(logger *slog.Logger, list ...*Tool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Tool, len(list)),
		logger: logger,
	}
	for _, t := range list {
		name := t.spec.Name
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.names = append(r.names, name)
		r.byName[name] = t
	}
	return r, nil
}

// Specs returns the declarations of all registered tools, in registration
// order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.names))
	for _, name := range r.names {
		specs = append(specs, r.byName[name].spec)
	}
	return specs
}

// Invoke validates input against the tool's schema and runs its handler.
// A nil input is treated as an empty argument object. Handler and
// validation failures are returned to the caller, which folds them into an
// error tool result rather than aborting the conversation.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) ([]llm.ContentBlock, error) {
	tool, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if input == nil {
		input = map[string]any{}
	}
	if err := tool.resolved.Validate(input); err != nil {
		return nil, fmt.Errorf("invalid arguments for tool %s: %w", name, err)
	}

	start := time.Now()
	blocks, err := tool.handler(ctx, input)
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "duration", time.Since(start), "error", err)
		return nil, err
	}
	r.logger.Debug("tool completed", "tool", name, "duration", time.Since(start))
	return blocks, nil
}
