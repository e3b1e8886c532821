// Package pipeline wires the corpus, retrieval and chat layers into the
// end-to-end flows behind the CLI: indexing the knowledge base and answering
// questions against it.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/nightcity-labs/choom/internal/chat"
	"github.com/nightcity-labs/choom/internal/config"
	"github.com/nightcity-labs/choom/internal/corpus"
	"github.com/nightcity-labs/choom/internal/retrieval"
)

// Config holds configuration for the knowledge-base pipeline.
type Config struct {
	// Retrieval configures passage scoring and top-K selection
	Retrieval retrieval.Config

	// LinesPerChunk and OverlapLines configure transcript chunking
	LinesPerChunk int
	OverlapLines  int

	// EmbedderModel is the embedding model (e.g. "text-embedding-3-small")
	EmbedderModel string

	// EmbedderDimension is the vector dimension for embeddings
	EmbedderDimension int

	// BatchSize is the number of passages embedded per API call
	BatchSize int

	// ForceReindex deletes and re-inserts passages even if they exist
	ForceReindex bool

	// PrefetchThreshold is the corpus size above which Ask stops loading
	// every passage and instead prefetches ANN candidates from the index,
	// rescoring them exactly. Non-positive disables prefetching.
	PrefetchThreshold int

	// Milvus holds the vector index configuration
	Milvus retrieval.MilvusConfig

	// LLM holds the answer-generation configuration
	LLM chat.Config
}

// DefaultConfig returns sensible defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		Retrieval:         retrieval.DefaultConfig(),
		LinesPerChunk:     12,
		OverlapLines:      2,
		EmbedderModel:     "text-embedding-3-small",
		EmbedderDimension: 1536,
		BatchSize:         10,
		ForceReindex:      false,
		PrefetchThreshold: 1000,
		Milvus:            retrieval.DefaultMilvusConfig(),
		LLM:               chat.DefaultConfig(),
	}
}

// FromAppConfig translates a loaded application config into a pipeline config.
func FromAppConfig(app *config.AppConfig) Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}

	cfg.Retrieval.WikiWeight = app.Retrieval.WikiWeight
	cfg.Retrieval.CharacterBonus = app.Retrieval.CharacterBonus
	cfg.Retrieval.TopK = app.Retrieval.TopK
	cfg.LinesPerChunk = app.Chunker.LinesPerChunk
	cfg.OverlapLines = app.Chunker.OverlapLines
	cfg.EmbedderModel = app.Embedder.Model
	cfg.EmbedderDimension = app.Embedder.Dimension
	cfg.Milvus.Address = app.Milvus.Address
	cfg.Milvus.CollectionName = app.Milvus.Collection
	cfg.Milvus.Dimension = app.Embedder.Dimension
	cfg.LLM.Model = app.LLM.Model
	cfg.LLM.MaxTokens = app.LLM.MaxTokens
	return cfg
}

// Corpus is the loaded knowledge base before indexing: the passages from both
// sources plus the character names found in the transcript.
type Corpus struct {
	Passages []corpus.Passage
	Names    *corpus.Registry
}

// BuildCorpus reads the transcript and wiki sources and turns them into
// passages. The wiki source may be a local directory or a git mirror URL; an
// empty wiki source skips wiki loading.
func BuildCorpus(transcriptPath, wikiSource string, cfg Config) (*Corpus, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	transcript := string(data)

	chunker := corpus.NewTranscriptChunker(cfg.LinesPerChunk, cfg.OverlapLines)
	passages := chunker.Chunk(transcript)
	log.Printf("[Pipeline] Chunked transcript into %d passages", len(passages))

	names := corpus.ExtractNames(transcript)
	log.Printf("[Pipeline] Extracted %d character names", names.Len())

	if wikiSource != "" {
		articles, err := corpus.LoadWiki(wikiSource)
		if err != nil {
			return nil, fmt.Errorf("failed to load wiki: %w", err)
		}
		log.Printf("[Pipeline] Loaded %d wiki articles", len(articles))
		passages = append(passages, articles...)
	}

	return &Corpus{Passages: passages, Names: names}, nil
}

// Pipeline orchestrates indexing and question answering over the knowledge
// base.
type Pipeline struct {
	config    Config
	embedder  retrieval.Embedder
	index     retrieval.VectorIndex
	generator *chat.Generator
}

// NewPipeline creates a pipeline with the given configuration, connecting to
// the embedding model, the vector index and the LLM.
func NewPipeline(ctx context.Context, cfg Config) (*Pipeline, error) {
	embedder, err := retrieval.NewOpenAIEmbedder(cfg.EmbedderModel, cfg.EmbedderDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	index, err := retrieval.NewMilvusStore(ctx, cfg.Milvus)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	llm, err := chat.NewOpenAILLM(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}

	return &Pipeline{
		config:    cfg,
		embedder:  embedder,
		index:     index,
		generator: chat.NewGenerator(llm, cfg.LLM),
	}, nil
}

// NewPipelineWith assembles a pipeline from pre-built components. Used by
// tests to substitute mocks for the external services.
func NewPipelineWith(cfg Config, embedder retrieval.Embedder, index retrieval.VectorIndex, llm chat.LLM) *Pipeline {
	return &Pipeline{
		config:    cfg,
		embedder:  embedder,
		index:     index,
		generator: chat.NewGenerator(llm, cfg.LLM),
	}
}

// Close releases resources held by the pipeline.
func (p *Pipeline) Close() error {
	if p.index != nil {
		return p.index.Close()
	}
	return nil
}

// IndexCorpus embeds the corpus passages and stores them in the vector index.
func (p *Pipeline) IndexCorpus(ctx context.Context, c *Corpus) error {
	if c == nil || len(c.Passages) == 0 {
		return fmt.Errorf("corpus contains no passages")
	}
	log.Printf("[Pipeline] Indexing %d passages", len(c.Passages))

	opts := retrieval.IndexOptions{
		BatchSize:    p.config.BatchSize,
		ForceReindex: p.config.ForceReindex,
		SkipExisting: !p.config.ForceReindex,
	}
	if err := retrieval.IndexPassages(ctx, c.Passages, p.embedder, p.index, opts); err != nil {
		return fmt.Errorf("failed to index passages: %w", err)
	}

	log.Printf("[Pipeline] Successfully indexed %d passages", len(c.Passages))
	return nil
}

// Stats returns collection statistics from the vector index.
func (p *Pipeline) Stats(ctx context.Context) (map[string]interface{}, error) {
	return p.index.GetStats(ctx)
}

// ANN prefetch width relative to the requested top-K.
const (
	prefetchFactor = 8
	minPrefetch    = 64
)

// Ask answers a question against the indexed knowledge base.
// The pipeline: load or prefetch candidates -> exact weighted scoring ->
// prompt assembly -> LLM generation. Small corpora are fetched whole and
// scored exhaustively; corpora past PrefetchThreshold are narrowed with an
// ANN search first, then rescored exactly. A non-positive k falls back to
// the configured top-K. When withAnswer is false, generation is skipped and
// only the ranked passages are returned.
func (p *Pipeline) Ask(ctx context.Context, question string, k int, withAnswer bool) (*chat.Answer, []retrieval.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil, fmt.Errorf("question cannot be empty")
	}
	if k <= 0 {
		k = p.config.Retrieval.TopK
	}

	var (
		results []retrieval.Result
		err     error
	)
	if p.shouldPrefetch(ctx) {
		results, err = p.askPrefetch(ctx, question, k)
	} else {
		results, err = p.askExact(ctx, question, k)
	}
	if err != nil {
		return nil, nil, err
	}

	if !withAnswer || len(results) == 0 {
		return nil, results, nil
	}

	// Stage 3: Answer generation
	log.Printf("[Pipeline] Stage 3: Generating answer with LLM")
	answer, err := p.generator.Generate(ctx, question, results)
	if err != nil {
		return nil, results, fmt.Errorf("answer generation failed: %w", err)
	}
	log.Printf("[Pipeline] Generated answer (%d characters)", len(answer.Text))

	return answer, results, nil
}

// askExact loads the whole corpus snapshot and scores every passage.
func (p *Pipeline) askExact(ctx context.Context, question string, k int) ([]retrieval.Result, error) {
	// Stage 1: Load the corpus snapshot from the vector index
	log.Printf("[Pipeline] Stage 1: Loading corpus from index")
	passages, err := p.index.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	store, err := corpus.NewStore(passages)
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus store: %w", err)
	}
	names := registryFromPassages(store.TranscriptPassages())
	log.Printf("[Pipeline] Loaded %d passages, %d character names", store.Len(), names.Len())

	// Stage 2: Retrieval
	log.Printf("[Pipeline] Stage 2: Retrieving top-%d passages", k)
	scorer, err := retrieval.NewScorer(p.config.Retrieval, names)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}
	retriever, err := retrieval.NewRetriever(p.embedder, store, scorer)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}
	results, err := retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	log.Printf("[Pipeline] Retrieved %d passages", len(results))
	return results, nil
}

// askPrefetch narrows a large corpus with an ANN search before scoring. The
// character registry is rebuilt from the prefetched transcript candidates, so
// only names surviving the prefetch can earn a bonus; the wider prefetch
// window keeps that a non-issue in practice.
func (p *Pipeline) askPrefetch(ctx context.Context, question string, k int) ([]retrieval.Result, error) {
	// Stage 1: ANN candidate prefetch
	log.Printf("[Pipeline] Stage 1: Prefetching ANN candidates for top-%d", k)
	vectors, err := p.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding generated for query")
	}

	prefetchK := k * prefetchFactor
	if prefetchK < minPrefetch {
		prefetchK = minPrefetch
	}
	hits, err := p.index.Search(ctx, vectors[0], prefetchK)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}
	if len(hits) == 0 {
		return []retrieval.Result{}, nil
	}
	names := registryFromPassages(hits)
	log.Printf("[Pipeline] Prefetched %d candidates, %d character names", len(hits), names.Len())

	// Stage 2: exact rescoring of the candidates
	log.Printf("[Pipeline] Stage 2: Rescoring candidates for top-%d", k)
	scorer, err := retrieval.NewScorer(p.config.Retrieval, names)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}
	results, err := retrieval.RescoreTopK(scorer, scorer.NewQuery(question, vectors[0]), hits, k)
	if err != nil {
		return nil, fmt.Errorf("rescoring failed: %w", err)
	}
	log.Printf("[Pipeline] Retrieved %d passages", len(results))
	return results, nil
}

// shouldPrefetch reports whether the collection is large enough that loading
// it whole is wasteful. Stats failures fall back to the exact path.
func (p *Pipeline) shouldPrefetch(ctx context.Context) bool {
	if p.config.PrefetchThreshold <= 0 {
		return false
	}
	stats, err := p.index.GetStats(ctx)
	if err != nil {
		return false
	}
	return statRowCount(stats) > p.config.PrefetchThreshold
}

// statRowCount extracts the row count from index stats. Milvus reports it as
// a string; mocks tend to use ints.
func statRowCount(stats map[string]interface{}) int {
	switch v := stats["row_count"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// registryFromPassages rebuilds the character-name registry from stored
// transcript passages. Speaker lines survive chunking intact, so re-scanning
// the stored chunks recovers the same names as the original transcript.
func registryFromPassages(passages []corpus.Passage) *corpus.Registry {
	var b strings.Builder
	for _, p := range passages {
		if p.Source != corpus.SourceTranscript {
			continue
		}
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return corpus.ExtractNames(b.String())
}
