package retrieval

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidTopK = errors.New("topK must be positive")

// ScoredCandidate pairs a passage ID with its relevance score. Candidates
// are ephemeral: constructed during scoring, discarded after selection.
type ScoredCandidate struct {
	PassageID string
	Score     float64
}

// SelectTopK returns the min(k, len(candidates)) highest-scoring candidates,
// ordered by score descending. Equal scores keep their relative input order,
// which makes the selection reproducible across runs with identical inputs.
// An empty candidate list returns an empty result, not an error.
func SelectTopK(candidates []ScoredCandidate, k int) ([]ScoredCandidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}

	out := make([]ScoredCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}
