package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nightcity-labs/choom/internal/corpus"
	"github.com/nightcity-labs/choom/internal/retrieval"
)

var ErrMissingQuestion = errors.New("question required for prompt assembly")

// AssemblePrompt builds the prompt for answer generation: the user question
// followed by the retrieved passages, each tagged with its source and
// relevance score. Passages arrive already ranked; the order is preserved so
// the most relevant context comes first.
func AssemblePrompt(question string, results []retrieval.Result) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrMissingQuestion
	}

	var b strings.Builder

	b.WriteString("You are a lore keeper for the world of Night City. ")
	b.WriteString("Answer the question using only the knowledge-base excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say you don't know; do not invent lore.\n\n")

	b.WriteString("# Question\n\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n")

	b.WriteString("# Knowledge-Base Excerpts\n\n")
	if len(results) == 0 {
		b.WriteString("(none retrieved)\n\n")
	} else {
		for i, r := range results {
			b.WriteString(fmt.Sprintf("## Excerpt %d — %s (relevance: %.2f)\n", i+1, sourceLabel(r), r.Score))
			b.WriteString(r.Text)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("# Task\n\n")
	b.WriteString("Answer in 1-3 short paragraphs. Cite the excerpt numbers you used. ")
	b.WriteString("Prefer wiki excerpts for facts and transcript excerpts for how characters speak and act.\n")

	return b.String(), nil
}

func sourceLabel(r retrieval.Result) string {
	switch r.Source {
	case corpus.SourceWiki:
		if r.Title != "" {
			return fmt.Sprintf("wiki article %q", r.Title)
		}
		return "wiki article"
	case corpus.SourceTranscript:
		return "game transcript"
	}
	return string(r.Source)
}
