package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/knowledge"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
)

// knowledgeStore is the slice of the knowledge store the tools consume.
type knowledgeStore interface {
	Insert(ctx context.Context, content string, embedding []float32) (uuid.UUID, error)
	SearchNearest(ctx context.Context, embedding []float32, limit int) ([]knowledge.Record, error)
}

// KnowledgeTools backs snapshot_knowledge and search_knowledge_base.
// Both operations embed their text first; an embedding failure surfaces as
// a tool error, not a conversation failure.
type KnowledgeTools struct {
	embedder knowledge.Embedder
	store    knowledgeStore
	logger   *slog.Logger
}

// NewKnowledgeTools wires the knowledge tools over an embedder and store.
func NewKnowledgeTools(embedder knowledge.Embedder, store knowledgeStore, logger *slog.Logger) *KnowledgeTools {
	return &KnowledgeTools{embedder: embedder, store: store, logger: logger}
}

// SnapshotInput is the argument schema for snapshot_knowledge.
type SnapshotInput struct {
	Content string `json:"content" jsonschema:"The knowledge base content to snapshot."`
}

// SearchKnowledgeInput is the argument schema for search_knowledge_base.
type SearchKnowledgeInput struct {
	Question string `json:"question" jsonschema:"The question to search for."`
}

// SnapshotTool returns the snapshot_knowledge tool.
func (k *KnowledgeTools) SnapshotTool() *Tool {
	return mustTool(NewTool(
		"snapshot_knowledge",
		"Snapshot new knowledge into the knowledge database only when necessary. Only include meaningful information.",
		k.snapshot,
	))
}

// SearchTool returns the search_knowledge_base tool.
func (k *KnowledgeTools) SearchTool() *Tool {
	return mustTool(NewTool(
		"search_knowledge_base",
		"Search the knowledge base database for similar content.",
		k.search,
	))
}

func (k *KnowledgeTools) snapshot(ctx context.Context, input SnapshotInput) ([]llm.ContentBlock, error) {
	embedding, err := k.embedder.Embed(ctx, input.Content)
	if err != nil {
		return nil, fmt.Errorf("embedding knowledge content: %w", err)
	}
	id, err := k.store.Insert(ctx, input.Content, embedding)
	if err != nil {
		return nil, fmt.Errorf("storing knowledge: %w", err)
	}
	k.logger.Info("knowledge snapshotted", "knowledge_id", id)

	return []llm.ContentBlock{llm.NewJSONBlock(map[string]any{"knowledge_id": id.String()})}, nil
}

func (k *KnowledgeTools) search(ctx context.Context, input SearchKnowledgeInput) ([]llm.ContentBlock, error) {
	embedding, err := k.embedder.Embed(ctx, input.Question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	records, err := k.store.SearchNearest(ctx, embedding, knowledge.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge base: %w", err)
	}

	return []llm.ContentBlock{llm.NewJSONBlock(map[string]any{"records": records})}, nil
}
