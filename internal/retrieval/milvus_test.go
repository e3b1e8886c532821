package retrieval

import (
	"context"
	"os"
	"testing"

	"github.com/nightcity-labs/choom/internal/corpus"
)

func TestDefaultMilvusConfig(t *testing.T) {
	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("MILVUS_ADDRESS", "milvus.example:19530")
		t.Setenv("MILVUS_COLLECTION", "custom_passages")

		cfg := DefaultMilvusConfig()
		if cfg.Address != "milvus.example:19530" {
			t.Errorf("Address = %q, want override", cfg.Address)
		}
		if cfg.CollectionName != "custom_passages" {
			t.Errorf("CollectionName = %q, want override", cfg.CollectionName)
		}
	})

	t.Run("Defaults without environment", func(t *testing.T) {
		t.Setenv("MILVUS_ADDRESS", "")
		t.Setenv("MILVUS_COLLECTION", "")

		cfg := DefaultMilvusConfig()
		if cfg.Address != "localhost:19530" {
			t.Errorf("Address = %q, want localhost:19530", cfg.Address)
		}
		if cfg.CollectionName != "choom_passages" {
			t.Errorf("CollectionName = %q, want choom_passages", cfg.CollectionName)
		}
		if cfg.Dimension != 1536 || cfg.IndexType != "HNSW" || cfg.MetricType != "COSINE" {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	})
}

func TestIDFilterExpr(t *testing.T) {
	if got := idFilterExpr([]string{"a"}); got != `passage_id == "a"` {
		t.Errorf("idFilterExpr = %q", got)
	}
	want := `passage_id == "a" or passage_id == "b"`
	if got := idFilterExpr([]string{"a", "b"}); got != want {
		t.Errorf("idFilterExpr = %q, want %q", got, want)
	}
}

func TestNewMilvusStore_InvalidDimension(t *testing.T) {
	cfg := DefaultMilvusConfig()
	cfg.Dimension = 0
	if _, err := NewMilvusStore(context.Background(), cfg); err != ErrInvalidDimension {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
}

// TestMilvusStore_RoundTrip exercises the real Milvus server. It is skipped
// unless MILVUS_ADDRESS points at a reachable instance.
func TestMilvusStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Milvus integration test in short mode")
	}
	if os.Getenv("MILVUS_ADDRESS") == "" {
		t.Skip("MILVUS_ADDRESS not set")
	}

	ctx := context.Background()
	cfg := DefaultMilvusConfig()
	cfg.CollectionName = "choom_passages_test"
	cfg.Dimension = 4

	store, err := NewMilvusStore(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer store.Close()

	passages := []corpus.Passage{
		{ID: "transcript:0", Text: "Johnny: wake up", Source: corpus.SourceTranscript, Embedding: []float32{1, 0, 0, 0}},
		{ID: "wiki:afterlife", Title: "Afterlife", Text: "A merc bar", Source: corpus.SourceWiki, Embedding: []float32{0, 1, 0, 0}},
	}
	defer store.Delete(ctx, []string{"transcript:0", "wiki:afterlife"})

	if err := store.Insert(ctx, passages); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	existence, err := store.Query(ctx, []string{"transcript:0", "wiki:afterlife", "missing"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !existence["transcript:0"] || !existence["wiki:afterlife"] {
		t.Errorf("inserted passages not found: %v", existence)
	}
	if existence["missing"] {
		t.Error("missing passage reported as present")
	}

	all, err := store.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(all) < 2 {
		t.Errorf("FetchAll returned %d passages, want >= 2", len(all))
	}
	for _, p := range all {
		if len(p.Embedding) != 4 {
			t.Errorf("passage %q fetched without its embedding", p.ID)
		}
	}

	hits, err := store.Search(ctx, []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "transcript:0" {
		t.Errorf("unexpected search hits: %+v", hits)
	}
}
