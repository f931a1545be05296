package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/log"
)

type echoInput struct {
	Message string `json:"message" jsonschema:"Text to echo back."`
}

func echoTool(t *testing.T) *Tool {
	t.Helper()
	tool, err := NewTool("echo", "Echo the message back.", func(_ context.Context, input echoInput) ([]llm.ContentBlock, error) {
		return []llm.ContentBlock{llm.NewTextBlock(input.Message)}, nil
	})
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}
	return tool
}

func TestRegistryInvokeDispatchesValidatedInput(t *testing.T) {
	registry, err := NewRegistry(log.NewNop(), echoTool(t))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	blocks, err := registry.Invoke(context.Background(), "echo", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text != "hello" {
		t.Fatalf("blocks = %+v, want single text block %q", blocks, "hello")
	}
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	registry, err := NewRegistry(log.NewNop(), echoTool(t))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	_, err = registry.Invoke(context.Background(), "no_such_tool", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Invoke error = %v, want ErrUnknownTool", err)
	}
}

func TestRegistryInvokeRejectsBadArguments(t *testing.T) {
	registry, err := NewRegistry(log.NewNop(), echoTool(t))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		name  string
		input map[string]any
	}{
		{"missing required field", map[string]any{}},
		{"wrong type", map[string]any{"message": 42}},
		{"nil input with required field", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := registry.Invoke(context.Background(), "echo", tt.input); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestRegistrySpecsPreserveRegistrationOrder(t *testing.T) {
	first, err := NewTool("first", "first tool", func(_ context.Context, _ echoInput) ([]llm.ContentBlock, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}
	second, err := NewTool("second", "second tool", func(_ context.Context, _ echoInput) ([]llm.ContentBlock, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}

	registry, err := NewRegistry(log.NewNop(), first, second)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	specs := registry.Specs()
	if len(specs) != 2 || specs[0].Name != "first" || specs[1].Name != "second" {
		t.Fatalf("Specs order = %+v, want [first second]", specs)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	if _, err := NewRegistry(log.NewNop(), echoTool(t), echoTool(t)); err == nil {
		t.Fatal("expected duplicate-name error, got nil")
	}
}

func TestRegistryInvokePropagatesHandlerError(t *testing.T) {
	wantErr := errors.New("backend down")
	failing, err := NewTool("failing", "always fails", func(_ context.Context, _ echoInput) ([]llm.ContentBlock, error) {
		return nil, wantErr
	})
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}

	registry, err := NewRegistry(log.NewNop(), failing)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	_, err = registry.Invoke(context.Background(), "failing", map[string]any{"message": "x"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Invoke error = %v, want %v", err, wantErr)
	}
}
