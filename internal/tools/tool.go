// Package tools implements the bot's tool surface: web search, URL
// retrieval and the two knowledge-base operations. Tools are registered
// with typed inputs; the registry validates incoming arguments against the
// generated JSON schema before dispatch.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
)

// Tool couples a tool's published spec with its execution logic.
// The handler is type-erased so heterogeneous tools share one registry;
// NewTool guarantees the input type matches the published schema.
type Tool struct {
	spec     llm.ToolSpec
	resolved *jsonschema.Resolved
	handler  func(ctx context.Context, input map[string]any) ([]llm.ContentBlock, error)
}

// Spec returns the tool's declaration as published to the model.
func (t *Tool) Spec() llm.ToolSpec {
	return t.spec
}

// NewTool builds a tool whose input schema is derived from In.
// The handler receives the already-validated, unmarshaled input and returns
// the content blocks that become the tool result.
func NewTool[In any](
	name string,
	description string,
	handler func(ctx context.Context, input In) ([]llm.ContentBlock, error),
) (*Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving schema for tool %s: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema for tool %s: %w", name, err)
	}

	erased := func(ctx context.Context, input map[string]any) ([]llm.ContentBlock, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("marshaling input for tool %s: %w", name, err)
		}
		var typed In
		if err := json.Unmarshal(raw, &typed); err != nil {
			return nil, fmt.Errorf("invalid input for tool %s: %w", name, err)
		}
		return handler(ctx, typed)
	}

	return &Tool{
		spec: llm.ToolSpec{
			Name:        name,
			Description: description,
			InputSchema: schema,
		},
		resolved: resolved,
		handler:  erased,
	}, nil
}

// mustTool panics on a tool construction error. Tool schemas are derived
// from static Go types, so a failure here is a programming error caught by
// the package's own tests.
func mustTool(t *Tool, err error) *Tool {
	if err != nil {
		panic(err)
	}
	return t
}
