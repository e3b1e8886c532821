package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nightcity-labs/choom/internal/pipeline"
)

var (
	askTopK int
	noLLM   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the Night City knowledge base",
	Long: `Ask a natural language question about the indexed knowledge base.

This command:
1. Loads the indexed passages from the vector store (Milvus)
2. Scores every passage with weighted cosine similarity plus a character bonus
3. Selects the top-K passages as context
4. Generates a grounded answer using an LLM (OpenAI)

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and LLM
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  choom ask "Who is Johnny Silverhand?"
  choom ask "What happened at Arasaka Tower?" --topk 5
  choom ask "Tell me about the Afterlife bar" --no-llm --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&askTopK, "topk", 0, "Number of passages to retrieve (0 uses the configured default)")
	askCmd.Flags().BoolVar(&noLLM, "no-llm", false, "Print the retrieved passages without generating an answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := context.Background()

	// Styling
	var (
		headerColor   = lipgloss.Color("#F780FF") // Bright pink
		questionColor = lipgloss.Color("#8BE9FD") // Cyan
		answerColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		contextColor  = lipgloss.Color("#6272A4") // Muted purple
		errorColor    = lipgloss.Color("#FF5555") // Red
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	questionStyle := lipgloss.NewStyle().
		Foreground(questionColor).
		Italic(true)

	answerStyle := lipgloss.NewStyle().
		Foreground(answerColor)

	contextStyle := lipgloss.NewStyle().
		Foreground(contextColor).
		Italic(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(questionStyle.Render(question))
	fmt.Println()

	p, err := pipeline.NewPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s Failed to create pipeline: %w", errorStyle.Render("Error:"), err)
	}
	defer p.Close()

	answer, results, err := p.Ask(ctx, question, askTopK, !noLLM)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if len(results) == 0 {
		fmt.Println(contextStyle.Render("No passages in the knowledge base. Run 'choom index' first."))
		return nil
	}

	fmt.Println(headerStyle.Render("Sources:"))
	for i, r := range results {
		label := string(r.Source)
		if r.Title != "" {
			label = fmt.Sprintf("%s: %s", r.Source, r.Title)
		}
		fmt.Println(contextStyle.Render(fmt.Sprintf("%d. [%.3f] %s (%s)", i+1, r.Score, label, r.ID)))
	}
	fmt.Println()

	if noLLM {
		for i, r := range results {
			fmt.Println(headerStyle.Render(fmt.Sprintf("Passage %d:", i+1)))
			fmt.Println(answerStyle.Render(strings.TrimSpace(r.Text)))
			fmt.Println()
		}
		return nil
	}

	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	fmt.Println(answerStyle.Render(strings.TrimSpace(answer.Text)))
	fmt.Println()

	return nil
}
