package retrieval

import (
	"math"

	"github.com/nightcity-labs/choom/internal/corpus"
)

// Cosine returns the cosine similarity of a and b. A zero-norm input yields
// 0 rather than dividing by zero; degenerate but defined.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Query is a transient user query: the raw text, its embedding, and the
// registry names found in the text. Created per user turn, never cached.
type Query struct {
	Text      string
	Embedding []float32

	// lowercase registry names appearing in Text
	names []string
}

// Scorer computes the weighted relevance of a passage against a query:
// cosine similarity, multiplied by the source weight, plus at most one
// character bonus.
type Scorer struct {
	cfg   Config
	names *corpus.Registry
}

// NewScorer validates the configuration and builds a scorer. A nil registry
// is treated as empty, so no passage ever receives a bonus.
func NewScorer(cfg Config, names *corpus.Registry) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if names == nil {
		names = corpus.NewRegistry(nil)
	}
	return &Scorer{cfg: cfg, names: names}, nil
}

// NewQuery prepares a query for scoring, precomputing which registry names
// it mentions so the per-passage check stays a substring scan.
func (s *Scorer) NewQuery(text string, embedding []float32) Query {
	return Query{
		Text:      text,
		Embedding: embedding,
		names:     s.names.NamesIn(text),
	}
}

// Score returns the weighted relevance of a passage for the query. A query
// mentioning no registered character never receives a bonus; that is a
// score of plain weighted cosine, not an error.
func (s *Scorer) Score(q Query, p corpus.Passage) float64 {
	score := Cosine(q.Embedding, p.Embedding) * s.sourceWeight(p.Source)
	if len(q.names) > 0 && corpus.AnyIn(q.names, p.Text) {
		score += s.cfg.CharacterBonus
	}
	return score
}

func (s *Scorer) sourceWeight(source corpus.Source) float64 {
	if source == corpus.SourceWiki {
		return s.cfg.WikiWeight
	}
	return 1 - s.cfg.WikiWeight
}
