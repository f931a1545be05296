package knowledge

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedder converts text into a fixed-dimension vector.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// embedModels is the slice of the genai SDK the embedder consumes.
type embedModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder is a stateless Embedder over the Gemini embedding API.
// The output dimensionality is truncated server-side to the configured
// dimension (Matryoshka representation, supported by gemini-embedding-001).
type GeminiEmbedder struct {
	models    embedModels
	model     string
	dimension int32
}

// NewGeminiEmbedder creates an embedder bound to one model and dimension.
func NewGeminiEmbedder(gc *genai.Client, model string, dimension int) (*GeminiEmbedder, error) {
	if gc == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	return newGeminiEmbedder(gc.Models, model, dimension)
}

func newGeminiEmbedder(m embedModels, model string, dimension int) (*GeminiEmbedder, error) {
	if m == nil {
		return nil, fmt.Errorf("models API is required")
	}
	if model == "" {
		return nil, fmt.Errorf("embedder model is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	return &GeminiEmbedder{models: m, model: model, dimension: int32(dimension)}, nil
}

// Embed returns the embedding vector for text.
// Failures propagate as-is; the calling tool handler folds them into an
// error tool result.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := e.dimension
	resp, err := e.models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &dim})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	values := resp.Embeddings[0].Values
	if len(values) != int(e.dimension) {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(values), e.dimension)
	}
	return values, nil
}
