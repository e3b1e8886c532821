// Package retrieval implements the context-retrieval core of the knowledge
// base: it embeds a user query, scores every stored passage with a weighted
// cosine similarity plus a character-name bonus, and returns the top-K
// passages for prompt assembly.
package retrieval

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/nightcity-labs/choom/internal/corpus"
)

// Result is a retrieved passage handed to the prompt-assembly layer.
type Result struct {
	ID     string        `json:"id"`
	Title  string        `json:"title,omitempty"`
	Text   string        `json:"text"`
	Source corpus.Source `json:"source"`
	Score  float64       `json:"score"`
}

// Retriever is the sole public entry point of the retrieval core. It owns no
// mutable state beyond its collaborators: the corpus store is an immutable
// snapshot, so queries need no locking.
type Retriever struct {
	embedder Embedder
	store    *corpus.Store
	scorer   *Scorer
	workers  int
}

// NewRetriever wires an embedder, an immutable corpus store and a scorer
// into a retriever. The store dimension must match the embedder dimension
// unless the store is empty.
func NewRetriever(embedder Embedder, store *corpus.Store, scorer *Scorer) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("corpus store cannot be nil")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if store.Len() > 0 && store.Dimension() != embedder.Dimension() {
		return nil, fmt.Errorf("%w: store has dimension %d, embedder produces %d",
			corpus.ErrDimensionMismatch, store.Dimension(), embedder.Dimension())
	}

	return &Retriever{
		embedder: embedder,
		store:    store,
		scorer:   scorer,
		workers:  runtime.GOMAXPROCS(0),
	}, nil
}

// Retrieve embeds the query, scores every passage and returns the k
// highest-scoring passages in descending score order. An empty corpus
// returns an empty result without calling the embedding model. Errors from
// the embedder propagate to the caller; there is no retry and no fallback.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}
	if r.store.Len() == 0 {
		return []Result{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embedding generated for query", ErrModelUnavailable)
	}

	q := r.scorer.NewQuery(query, vectors[0])
	candidates := r.scoreAll(q)

	top, err := SelectTopK(candidates, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(top))
	for _, c := range top {
		p, ok := r.store.Get(c.PassageID)
		if !ok {
			return nil, fmt.Errorf("scored passage %q missing from store", c.PassageID)
		}
		results = append(results, Result{
			ID:     p.ID,
			Title:  p.Title,
			Text:   p.Text,
			Source: p.Source,
			Score:  c.Score,
		})
	}

	return results, nil
}

// RescoreTopK exactly rescores ANN-prefetched candidate passages with the
// weighted scorer and returns the k best. The raw index distances are
// discarded; only the exact weighted score ranks candidates. Candidates keep
// their input order for the stable tie-break.
func RescoreTopK(scorer *Scorer, q Query, passages []corpus.Passage, k int) ([]Result, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}

	candidates := make([]ScoredCandidate, len(passages))
	byID := make(map[string]corpus.Passage, len(passages))
	for i, p := range passages {
		candidates[i] = ScoredCandidate{PassageID: p.ID, Score: scorer.Score(q, p)}
		byID[p.ID] = p
	}

	top, err := SelectTopK(candidates, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(top))
	for _, c := range top {
		p := byID[c.PassageID]
		results = append(results, Result{
			ID:     p.ID,
			Title:  p.Title,
			Text:   p.Text,
			Source: p.Source,
			Score:  c.Score,
		})
	}
	return results, nil
}

// scoreAll scores every passage against the query. Scoring is independent
// per passage and fans out across a bounded worker pool; scores land in an
// index-addressed slice so parallel execution cannot perturb the stable
// tie-break order of the later selection.
func (r *Retriever) scoreAll(q Query) []ScoredCandidate {
	passages := r.store.Passages()
	candidates := make([]ScoredCandidate, len(passages))

	workers := r.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(passages) {
		workers = len(passages)
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				candidates[i] = ScoredCandidate{
					PassageID: passages[i].ID,
					Score:     r.scorer.Score(q, passages[i]),
				}
			}
		}()
	}
	for i := range passages {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return candidates
}
