package corpus

import (
	"errors"
	"fmt"
)

// Common errors for corpus construction
var (
	ErrMissingEmbedding  = errors.New("passage has no embedding")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDuplicateID       = errors.New("duplicate passage ID")
)

// Store is an immutable read-only index of embedded passages. It is built
// once after the corpus has been chunked and embedded, and read many times
// per query. Iteration order is the insertion order, which keeps downstream
// tie-breaking deterministic across repeated iterations.
type Store struct {
	passages  []Passage
	byID      map[string]int
	dimension int
}

// NewStore validates the passages and builds an immutable store. Every
// passage must carry an embedding of the same dimensionality; the first
// passage fixes the store dimension. An empty passage list yields a valid
// empty store.
func NewStore(passages []Passage) (*Store, error) {
	s := &Store{
		byID: make(map[string]int, len(passages)),
	}
	if len(passages) == 0 {
		return s, nil
	}

	s.dimension = len(passages[0].Embedding)
	s.passages = make([]Passage, len(passages))
	copy(s.passages, passages)

	for i, p := range s.passages {
		if len(p.Embedding) == 0 {
			return nil, fmt.Errorf("%w: passage %q", ErrMissingEmbedding, p.ID)
		}
		if len(p.Embedding) != s.dimension {
			return nil, fmt.Errorf("%w: passage %q has dimension %d, store has %d",
				ErrDimensionMismatch, p.ID, len(p.Embedding), s.dimension)
		}
		if _, exists := s.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
		}
		s.byID[p.ID] = i
	}

	return s, nil
}

// Dimension returns the embedding dimensionality shared by all passages.
// An empty store reports 0.
func (s *Store) Dimension() int {
	return s.dimension
}

// Len returns the number of passages in the store.
func (s *Store) Len() int {
	return len(s.passages)
}

// Passages returns all passages in insertion order. The returned slice is
// shared with the store and must not be modified.
func (s *Store) Passages() []Passage {
	return s.passages
}

// TranscriptPassages returns the transcript-sourced passages in insertion order.
func (s *Store) TranscriptPassages() []Passage {
	return s.bySource(SourceTranscript)
}

// WikiPassages returns the wiki-sourced passages in insertion order.
func (s *Store) WikiPassages() []Passage {
	return s.bySource(SourceWiki)
}

func (s *Store) bySource(source Source) []Passage {
	var out []Passage
	for _, p := range s.passages {
		if p.Source == source {
			out = append(out, p)
		}
	}
	return out
}

// Get looks up a passage by ID.
func (s *Store) Get(id string) (Passage, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Passage{}, false
	}
	return s.passages[i], true
}
