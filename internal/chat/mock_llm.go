package chat

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on prompt content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastPrompt stores the most recent prompt passed to Generate.
	LastPrompt string
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.LastPrompt = prompt

	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}

	return generateMockResponse(prompt), nil
}

// generateMockResponse creates a predictable answer from the prompt.
func generateMockResponse(prompt string) string {
	question := "the question"
	if idx := strings.Index(prompt, "# Question"); idx >= 0 {
		remainder := prompt[idx+len("# Question"):]
		if split := strings.SplitN(strings.TrimSpace(remainder), "\n", 2); len(split) > 0 {
			question = strings.TrimSpace(split[0])
		}
	}

	excerpts := strings.Count(prompt, "## Excerpt ")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Answering %q based on %d excerpts. ", question, excerpts))
	b.WriteString("The knowledge base provides the relevant background for this answer.")
	return b.String()
}
