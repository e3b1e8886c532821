package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Common errors for embedding operations
var (
	ErrEmptyTexts       = errors.New("no texts provided for embedding")
	ErrModelUnavailable = errors.New("embedding model unavailable")
)

// Embedder converts text into fixed-dimension vectors. Implementations must
// be deterministic for a fixed model and input, and must never substitute a
// fallback vector for a failed call; a failure surfaces as an error wrapping
// ErrModelUnavailable.
type Embedder interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model identifier.
	Model() string

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// OpenAIEmbedder implements Embedder using OpenAI's embeddings API.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. The API key is read
// from OPENAI_API_KEY; a missing key is a fatal ErrModelUnavailable since no
// vector can ever be produced without it.
func NewOpenAIEmbedder(model string, dimension int) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", ErrModelUnavailable)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrModelUnavailable)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrModelUnavailable, dimension)
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
	}, nil
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Dimension returns the embedding vector dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates embeddings for the provided texts in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.model,
		Dimensions:     openai.Int(int64(e.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrModelUnavailable, len(texts), len(resp.Data))
	}

	return embeddingVectors(resp.Data, len(texts))
}

// embeddingVectors places response vectors by their reported input index.
// The index comes from the API and is not trusted: out-of-range or missing
// indices surface as ErrModelUnavailable instead of a panic or a nil vector.
func embeddingVectors(data []openai.Embedding, n int) ([][]float32, error) {
	vectors := make([][]float32, n)
	for _, d := range data {
		idx := int(d.Index)
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: embedding index %d out of range for %d inputs", ErrModelUnavailable, idx, n)
		}
		vec := make([]float32, len(d.Embedding))
		for j, val := range d.Embedding {
			vec[j] = float32(val)
		}
		vectors[idx] = vec
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: no embedding returned for input %d", ErrModelUnavailable, i)
		}
	}
	return vectors, nil
}
