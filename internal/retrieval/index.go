package retrieval

import (
	"context"
	"fmt"

	"github.com/nightcity-labs/choom/internal/corpus"
)

// VectorIndex is the persistent side of the corpus: embedded passages are
// written once by the indexer and read back at query time to rebuild the
// in-memory store for exact weighted scoring.
type VectorIndex interface {
	// Insert writes embedded passages in a single batch.
	Insert(ctx context.Context, passages []corpus.Passage) error

	// Flush ensures all pending data is persisted.
	Flush(ctx context.Context) error

	// FetchAll reads every stored passage back, embeddings included,
	// ordered by passage ID.
	FetchAll(ctx context.Context) ([]corpus.Passage, error)

	// Search performs an ANN prefetch of the topK nearest passages by raw
	// cosine. Results are candidates for rescoring, not final scores.
	Search(ctx context.Context, queryVector []float32, topK int) ([]corpus.Passage, error)

	// Query checks which passage IDs exist in the index.
	Query(ctx context.Context, passageIDs []string) (map[string]bool, error)

	// Delete removes passages by ID.
	Delete(ctx context.Context, passageIDs []string) error

	// GetStats returns collection statistics.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close releases resources and closes connections.
	Close() error
}

// IndexOptions provides configuration for passage indexing
type IndexOptions struct {
	// BatchSize determines how many passages to embed per API call
	BatchSize int

	// ForceReindex deletes and re-inserts passages even if they exist
	ForceReindex bool

	// SkipExisting skips passages whose IDs are already in the index
	SkipExisting bool
}

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize:    10,
		ForceReindex: false,
		SkipExisting: true,
	}
}

// EmbedPassages fills in the embedding of every passage, batching the
// embedder calls. The input slice is not modified; a new slice is returned.
func EmbedPassages(ctx context.Context, passages []corpus.Passage, embedder Embedder, batchSize int) ([]corpus.Passage, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = DefaultIndexOptions().BatchSize
	}

	out := make([]corpus.Passage, len(passages))
	copy(out, passages)

	for start := 0; start < len(out); start += batchSize {
		end := start + batchSize
		if end > len(out) {
			end = len(out)
		}
		batch := out[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d vectors for batch starting at %d, got %d",
				ErrModelUnavailable, len(batch), start, len(vectors))
		}

		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
	}

	return out, nil
}

// IndexPassages embeds passages in batches and stores them in the vector
// index. Passages that already carry an embedding are not re-embedded.
func IndexPassages(ctx context.Context, passages []corpus.Passage, embedder Embedder, index VectorIndex, opts IndexOptions) error {
	if len(passages) == 0 {
		return nil
	}
	if embedder == nil {
		return fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return fmt.Errorf("vector index cannot be nil")
	}

	if opts.ForceReindex {
		ids := passageIDs(passages)
		if err := index.Delete(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete existing passages: %w", err)
		}
	}

	toIndex := passages
	if opts.SkipExisting && !opts.ForceReindex {
		toIndex = filterNewPassages(ctx, passages, index)
	}
	if len(toIndex) == 0 {
		return nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultIndexOptions().BatchSize
	}

	for start := 0; start < len(toIndex); start += batchSize {
		end := start + batchSize
		if end > len(toIndex) {
			end = len(toIndex)
		}
		batch := toIndex[start:end]

		embedded, err := embedBatch(ctx, batch, embedder)
		if err != nil {
			return err
		}

		if err := index.Insert(ctx, embedded); err != nil {
			return fmt.Errorf("failed to insert batch starting at %d: %w", start, err)
		}
		if err := index.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush batch starting at %d: %w", start, err)
		}
	}

	return nil
}

func embedBatch(ctx context.Context, batch []corpus.Passage, embedder Embedder) ([]corpus.Passage, error) {
	for _, p := range batch {
		if len(p.Embedding) == 0 {
			return EmbedPassages(ctx, batch, embedder, len(batch))
		}
	}
	return batch, nil
}

// filterNewPassages removes passages whose IDs already exist in the index.
// If the existence check fails, all passages are returned and the caller
// handles errors during insertion.
func filterNewPassages(ctx context.Context, passages []corpus.Passage, index VectorIndex) []corpus.Passage {
	existing, err := index.Query(ctx, passageIDs(passages))
	if err != nil {
		return passages
	}

	fresh := make([]corpus.Passage, 0, len(passages))
	for _, p := range passages {
		if !existing[p.ID] {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

func passageIDs(passages []corpus.Passage) []string {
	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.ID
	}
	return ids
}
