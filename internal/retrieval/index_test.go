package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nightcity-labs/choom/internal/corpus"
)

// mockVectorIndex implements VectorIndex for testing
type mockVectorIndex struct {
	passages   map[string]corpus.Passage
	insertFunc func(ctx context.Context, passages []corpus.Passage) error
	queryFunc  func(ctx context.Context, passageIDs []string) (map[string]bool, error)
	deleteFunc func(ctx context.Context, passageIDs []string) error

	inserted []corpus.Passage
	flushes  int
	deleted  []string
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{passages: make(map[string]corpus.Passage)}
}

func (m *mockVectorIndex) Insert(ctx context.Context, passages []corpus.Passage) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, passages)
	}
	for _, p := range passages {
		m.passages[p.ID] = p
	}
	m.inserted = append(m.inserted, passages...)
	return nil
}

func (m *mockVectorIndex) Flush(ctx context.Context) error {
	m.flushes++
	return nil
}

func (m *mockVectorIndex) FetchAll(ctx context.Context) ([]corpus.Passage, error) {
	out := make([]corpus.Passage, 0, len(m.passages))
	for _, p := range m.passages {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockVectorIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]corpus.Passage, error) {
	all, _ := m.FetchAll(ctx)
	if len(all) > topK {
		all = all[:topK]
	}
	return all, nil
}

func (m *mockVectorIndex) Query(ctx context.Context, passageIDs []string) (map[string]bool, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, passageIDs)
	}
	result := make(map[string]bool, len(passageIDs))
	for _, id := range passageIDs {
		_, exists := m.passages[id]
		result[id] = exists
	}
	return result, nil
}

func (m *mockVectorIndex) Delete(ctx context.Context, passageIDs []string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, passageIDs)
	}
	for _, id := range passageIDs {
		delete(m.passages, id)
	}
	m.deleted = append(m.deleted, passageIDs...)
	return nil
}

func (m *mockVectorIndex) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"row_count": len(m.passages)}, nil
}

func (m *mockVectorIndex) Close() error { return nil }

func samplePassages(n int) []corpus.Passage {
	out := make([]corpus.Passage, n)
	for i := range out {
		out[i] = corpus.Passage{
			ID:     fmt.Sprintf("transcript:%d", i),
			Text:   fmt.Sprintf("line %d", i),
			Source: corpus.SourceTranscript,
		}
	}
	return out
}

func TestEmbedPassages(t *testing.T) {
	embedder := &mockEmbedder{dimension: 3}

	t.Run("Fills embeddings without modifying input", func(t *testing.T) {
		in := samplePassages(5)
		out, err := EmbedPassages(context.Background(), in, embedder, 2)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(out) != 5 {
			t.Fatalf("expected 5 passages, got %d", len(out))
		}
		for i, p := range out {
			if len(p.Embedding) != 3 {
				t.Errorf("passage %d embedding dimension = %d, want 3", i, len(p.Embedding))
			}
		}
		for i, p := range in {
			if len(p.Embedding) != 0 {
				t.Errorf("input passage %d was modified", i)
			}
		}
	})

	t.Run("Embedder error aborts", func(t *testing.T) {
		failing := &mockEmbedder{
			dimension: 3,
			embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, errors.New("boom")
			},
		}
		if _, err := EmbedPassages(context.Background(), samplePassages(2), failing, 10); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Nil embedder rejected", func(t *testing.T) {
		if _, err := EmbedPassages(context.Background(), samplePassages(1), nil, 10); err == nil {
			t.Error("expected error")
		}
	})
}

func TestIndexPassages(t *testing.T) {
	embedder := &mockEmbedder{dimension: 3}

	t.Run("Inserts and flushes in batches", func(t *testing.T) {
		index := newMockVectorIndex()
		opts := IndexOptions{BatchSize: 2, SkipExisting: true}

		err := IndexPassages(context.Background(), samplePassages(5), embedder, index, opts)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(index.inserted) != 5 {
			t.Errorf("inserted %d passages, want 5", len(index.inserted))
		}
		if index.flushes != 3 {
			t.Errorf("flushes = %d, want 3", index.flushes)
		}
		for _, p := range index.inserted {
			if len(p.Embedding) != 3 {
				t.Errorf("passage %q inserted without embedding", p.ID)
			}
		}
	})

	t.Run("SkipExisting filters indexed passages", func(t *testing.T) {
		index := newMockVectorIndex()
		index.passages["transcript:0"] = corpus.Passage{ID: "transcript:0"}
		index.passages["transcript:2"] = corpus.Passage{ID: "transcript:2"}

		err := IndexPassages(context.Background(), samplePassages(4), embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(index.inserted) != 2 {
			t.Fatalf("inserted %d passages, want 2", len(index.inserted))
		}
		if index.inserted[0].ID != "transcript:1" || index.inserted[1].ID != "transcript:3" {
			t.Errorf("inserted %q, %q; want transcript:1, transcript:3",
				index.inserted[0].ID, index.inserted[1].ID)
		}
	})

	t.Run("ForceReindex deletes first and inserts everything", func(t *testing.T) {
		index := newMockVectorIndex()
		index.passages["transcript:0"] = corpus.Passage{ID: "transcript:0"}

		opts := IndexOptions{BatchSize: 10, ForceReindex: true}
		err := IndexPassages(context.Background(), samplePassages(3), embedder, index, opts)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(index.deleted) != 3 {
			t.Errorf("deleted %d IDs, want 3", len(index.deleted))
		}
		if len(index.inserted) != 3 {
			t.Errorf("inserted %d passages, want 3", len(index.inserted))
		}
	})

	t.Run("Existence-check failure falls back to inserting all", func(t *testing.T) {
		index := newMockVectorIndex()
		index.queryFunc = func(ctx context.Context, passageIDs []string) (map[string]bool, error) {
			return nil, errors.New("query unavailable")
		}

		err := IndexPassages(context.Background(), samplePassages(2), embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(index.inserted) != 2 {
			t.Errorf("inserted %d passages, want 2", len(index.inserted))
		}
	})

	t.Run("Pre-embedded passages are not re-embedded", func(t *testing.T) {
		calls := 0
		counting := &mockEmbedder{
			dimension: 3,
			embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				calls++
				out := make([][]float32, len(texts))
				for i := range texts {
					out[i] = []float32{1, 0, 0}
				}
				return out, nil
			},
		}

		passages := samplePassages(2)
		for i := range passages {
			passages[i].Embedding = []float32{0, 1, 0}
		}

		index := newMockVectorIndex()
		err := IndexPassages(context.Background(), passages, counting, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if calls != 0 {
			t.Errorf("embedder called %d times for pre-embedded passages", calls)
		}
	})

	t.Run("Empty input is a no-op", func(t *testing.T) {
		index := newMockVectorIndex()
		if err := IndexPassages(context.Background(), nil, embedder, index, DefaultIndexOptions()); err != nil {
			t.Errorf("expected no error, got: %v", err)
		}
		if len(index.inserted) != 0 {
			t.Error("nothing should be inserted")
		}
	})
}
