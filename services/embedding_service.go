package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// EmbeddingClient is the narrow contract against the remote embedding
// provider. langchaingo's *openai.LLM satisfies it directly; tests
// substitute a stub.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder is what the pipeline depends on for embedding generation.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// EmbeddingService batches texts into single provider calls. Output order
// and cardinality always match the input; failures surface as ProviderError
// with no retry.
type EmbeddingService struct {
	client    EmbeddingClient
	model     string
	dimension int
}

// NewEmbeddingService creates an embedding gateway for the given model.
func NewEmbeddingService(client EmbeddingClient, model string, dimension int) *EmbeddingService {
	return &EmbeddingService{client: client, model: model, dimension: dimension}
}

// Model returns the embedding model tag recorded in stored payloads.
func (s *EmbeddingService) Model() string { return s.model }

// Dimension returns the configured vector dimensionality.
func (s *EmbeddingService) Dimension() int { return s.dimension }

// EmbedBatch embeds all texts in one outbound call, preserving order.
// An empty input returns an empty result without contacting the provider.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := s.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	if len(vectors) != len(texts) {
		logrus.Errorf("SERVICE: embedding cardinality mismatch: sent %d texts, got %d vectors", len(texts), len(vectors))
		return nil, &ProviderError{Op: "embed", Err: fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors))}
	}
	return vectors, nil
}

// EmbedQuery embeds a single text.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
