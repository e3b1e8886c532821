package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nightcity-labs/choom/internal/retrieval"
)

var ErrGenerationFailed = errors.New("answer generation failed")

// Answer is a generated response grounded in retrieved passages.
type Answer struct {
	// Question is the user question this answer responds to
	Question string `json:"question"`

	// Text is the generated answer content
	Text string `json:"text"`

	// Sources are the retrieved passages the answer was grounded in
	Sources []retrieval.Result `json:"sources,omitempty"`

	// GeneratedAt is when this answer was created
	GeneratedAt time.Time `json:"generated_at"`

	// Model is the LLM model used to generate this answer
	Model string `json:"model"`
}

// Generator produces answers from retrieved passages using an LLM.
type Generator struct {
	llm    LLM
	config Config
}

// NewGenerator creates an answer generator with the given LLM implementation.
func NewGenerator(llm LLM, config Config) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
	}
}

// Generate assembles the prompt from the question and retrieved passages and
// invokes the LLM. It performs no retrieval itself.
func (g *Generator) Generate(ctx context.Context, question string, results []retrieval.Result) (*Answer, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}

	prompt, err := AssemblePrompt(question, results)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM invocation failed: %w", ErrGenerationFailed, err)
	}

	return &Answer{
		Question:    question,
		Text:        text,
		Sources:     results,
		GeneratedAt: time.Now(),
		Model:       g.config.Model,
	}, nil
}
