package retrieval

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid retrieval configuration")

// Config holds the scoring and selection knobs for retrieval. The wiki and
// transcript weights are complementary: wiki passages are weighted by
// WikiWeight and transcript passages by 1-WikiWeight, so the two sources
// stay directly comparable.
type Config struct {
	// WikiWeight multiplies the cosine similarity of wiki passages.
	// Transcript passages get 1-WikiWeight. Must be in [0, 1].
	WikiWeight float64

	// CharacterBonus is added once to a passage's weighted score when a
	// registered character name appears in both the query and the passage.
	// Must be >= 0.
	CharacterBonus float64

	// TopK is the default number of passages to retrieve. Must be positive.
	TopK int
}

// DefaultConfig returns the stock weighting used by the knowledge base.
func DefaultConfig() Config {
	return Config{
		WikiWeight:     0.7,
		CharacterBonus: 0.05,
		TopK:           3,
	}
}

// Validate checks the configuration once at construction time.
func (c Config) Validate() error {
	if c.WikiWeight < 0 || c.WikiWeight > 1 {
		return fmt.Errorf("%w: wiki weight must be in [0, 1], got %v", ErrInvalidConfig, c.WikiWeight)
	}
	if c.CharacterBonus < 0 {
		return fmt.Errorf("%w: character bonus must be >= 0, got %v", ErrInvalidConfig, c.CharacterBonus)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	return nil
}
