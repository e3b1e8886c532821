package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/nightcity-labs/choom/internal/corpus"
)

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyPassages    = errors.New("no passages provided for insertion")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert passages")
	ErrSearchFailed     = errors.New("failed to search vectors")
	ErrFetchFailed      = errors.New("failed to fetch passages")
)

// MilvusConfig holds configuration for the Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection
	Dimension      int    // Vector dimension (e.g., 1536 for text-embedding-3-small)
	IndexType      string // Index type (default: "HNSW")
	MetricType     string // Similarity metric (default: "COSINE")

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
}

// DefaultMilvusConfig returns default configuration from environment variables
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "choom_passages"
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      1536, // Default for text-embedding-3-small
		IndexType:      "HNSW",
		MetricType:     "COSINE",
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusStore implements VectorIndex using Milvus. It persists embedded
// passages between runs so queries do not re-embed the corpus.
type MilvusStore struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusStore connects to Milvus and ensures the passage collection
// exists with the expected schema.
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{
		client: c,
		config: config,
	}

	if err := store.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the collection with schema if it doesn't exist
func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "passage_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Insert writes embedded passages to Milvus in a single batch.
func (m *MilvusStore) Insert(ctx context.Context, passages []corpus.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	ids := make([]string, len(passages))
	titles := make([]string, len(passages))
	texts := make([]string, len(passages))
	sources := make([]string, len(passages))
	embeddings := make([][]float32, len(passages))

	for i, p := range passages {
		if len(p.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: passage %q has dimension %d, expected %d",
				ErrInvalidDimension, p.ID, len(p.Embedding), m.config.Dimension)
		}
		ids[i] = p.ID
		titles[i] = p.Title
		texts[i] = p.Text
		sources[i] = string(p.Source)
		embeddings[i] = p.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("passage_id", ids),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	return nil
}

// Flush ensures all pending data is persisted.
func (m *MilvusStore) Flush(ctx context.Context) error {
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}
	return nil
}

// FetchAll reads every stored passage back, embeddings included, sorted by
// passage ID so the rebuilt corpus store iterates in a reproducible order.
func (m *MilvusStore) FetchAll(ctx context.Context) ([]corpus.Passage, error) {
	results, err := m.client.Query(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		`passage_id != ""`,
		[]string{"passage_id", "title", "text", "source", "embedding"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	passages, err := parsePassageColumns(results)
	if err != nil {
		return nil, err
	}
	sort.Slice(passages, func(i, j int) bool { return passages[i].ID < passages[j].ID })
	return passages, nil
}

// Search performs an ANN prefetch of the topK nearest passages by raw
// cosine similarity. The returned passages carry their embeddings so the
// caller can rescore them with the weighted scorer.
func (m *MilvusStore) Search(ctx context.Context, queryVector []float32, topK int) ([]corpus.Passage, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}

	sp, err := entity.NewIndexHNSWSearchParam(64) // ef parameter for search
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		"",
		[]string{"passage_id", "title", "text", "source", "embedding"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(results) == 0 {
		return []corpus.Passage{}, nil
	}

	return parsePassageColumns(results[0].Fields)
}

// Query checks which passage IDs exist in the collection.
func (m *MilvusStore) Query(ctx context.Context, passageIDs []string) (map[string]bool, error) {
	existence := make(map[string]bool, len(passageIDs))
	if len(passageIDs) == 0 {
		return existence, nil
	}
	for _, id := range passageIDs {
		existence[id] = false
	}

	results, err := m.client.Query(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		idFilterExpr(passageIDs),
		[]string{"passage_id"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}

	for _, column := range results {
		if column.Name() != "passage_id" {
			continue
		}
		if varcharCol, ok := column.(*entity.ColumnVarChar); ok {
			for _, id := range varcharCol.Data() {
				existence[id] = true
			}
		}
	}

	return existence, nil
}

// Delete removes passages by ID.
func (m *MilvusStore) Delete(ctx context.Context, passageIDs []string) error {
	if len(passageIDs) == 0 {
		return nil
	}
	if err := m.client.Delete(ctx, m.config.CollectionName, "", idFilterExpr(passageIDs)); err != nil {
		return fmt.Errorf("failed to delete passages: %w", err)
	}
	return nil
}

// GetStats returns collection statistics
func (m *MilvusStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return map[string]interface{}{
		"row_count": stats["row_count"],
	}, nil
}

// Close releases resources and closes the Milvus connection.
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// idFilterExpr builds a passage_id filter expression for the given IDs.
func idFilterExpr(passageIDs []string) string {
	expr := fmt.Sprintf(`passage_id == "%s"`, passageIDs[0])
	for i := 1; i < len(passageIDs); i++ {
		expr = fmt.Sprintf(`%s or passage_id == "%s"`, expr, passageIDs[i])
	}
	return expr
}

// parsePassageColumns converts Milvus result columns back into passages.
func parsePassageColumns(columns []entity.Column) ([]corpus.Passage, error) {
	var (
		ids, titles, texts, sources []string
		embeddings                  [][]float32
	)

	for _, column := range columns {
		switch column.Name() {
		case "passage_id":
			ids = column.(*entity.ColumnVarChar).Data()
		case "title":
			titles = column.(*entity.ColumnVarChar).Data()
		case "text":
			texts = column.(*entity.ColumnVarChar).Data()
		case "source":
			sources = column.(*entity.ColumnVarChar).Data()
		case "embedding":
			embeddings = column.(*entity.ColumnFloatVector).Data()
		}
	}

	passages := make([]corpus.Passage, 0, len(ids))
	for i := range ids {
		p := corpus.Passage{ID: ids[i]}
		if i < len(titles) {
			p.Title = titles[i]
		}
		if i < len(texts) {
			p.Text = texts[i]
		}
		if i < len(sources) {
			p.Source = corpus.Source(sources[i])
		}
		if i < len(embeddings) {
			p.Embedding = embeddings[i]
		}
		passages = append(passages, p)
	}

	return passages, nil
}
