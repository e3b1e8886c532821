package corpus

// Source identifies which corpus a passage came from. The retrieval layer
// weights the two sources differently, so every passage carries exactly one.
type Source string

const (
	SourceTranscript Source = "transcript"
	SourceWiki       Source = "wiki"
)

// Passage is a retrievable unit of text with a precomputed embedding.
// The embedding must be produced by the same model version as the query
// embedding used at lookup time; mixing model versions silently produces
// meaningless similarity scores.
type Passage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Source    Source    `json:"source"`
	Embedding []float32 `json:"embedding,omitempty"`
}
