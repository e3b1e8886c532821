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
	reindex   bool
	batchSize int
)

var indexCmd = &cobra.Command{
	Use:   "index [transcript] [wiki]",
	Short: "Index the knowledge base into the vector store",
	Long: `Index a game transcript and optionally a wiki into the vector store.

The transcript is a text file of dialogue lines ("Speaker: line"). The wiki
may be a local directory of .md/.txt articles or the URL of a git mirror,
which is cloned in memory.

Passages already present in the store are skipped unless --reindex is set.

Examples:
  choom index transcript.txt
  choom index transcript.txt ./wiki
  choom index transcript.txt https://github.com/user/nc-wiki --reindex`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&reindex, "reindex", false, "Delete and re-insert passages that already exist")
	indexCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Passages embedded per API call (0 uses the default)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	transcriptPath := args[0]
	wikiSource := ""
	if len(args) > 1 {
		wikiSource = args[1]
	}
	ctx := context.Background()

	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink
		contextColor = lipgloss.Color("#6272A4") // Muted purple
		numberColor  = lipgloss.Color("#FF79C6") // Pink
		successColor = lipgloss.Color("#50FA7B") // Green
		errorColor   = lipgloss.Color("#FF5555") // Red
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	contextStyle := lipgloss.NewStyle().
		Foreground(contextColor).
		Italic(true)

	numberStyle := lipgloss.NewStyle().
		Foreground(numberColor)

	successStyle := lipgloss.NewStyle().
		Foreground(successColor)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	cfg.ForceReindex = reindex
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}

	if verbose {
		fmt.Println(contextStyle.Render("→ Building corpus..."))
	}
	corp, err := pipeline.BuildCorpus(transcriptPath, wikiSource, cfg)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	printCorpusSummary(corp, headerStyle, numberStyle)

	if verbose {
		fmt.Println(contextStyle.Render("→ Connecting to vector store..."))
	}
	p, err := pipeline.NewPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s Failed to create pipeline: %w", errorStyle.Render("Error:"), err)
	}
	defer p.Close()

	if verbose || reindex {
		fmt.Println(contextStyle.Render("→ Embedding and indexing passages..."))
	}
	if err := p.IndexCorpus(ctx, corp); err != nil {
		return fmt.Errorf("%s Failed to index corpus: %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Indexed %d passages", len(corp.Passages))))

	if stats, err := p.Stats(ctx); err == nil {
		fmt.Println(contextStyle.Render(fmt.Sprintf("Collection rows: %v", stats["row_count"])))
	}

	return nil
}

// printCorpusSummary prints per-source passage counts and the extracted
// character names.
func printCorpusSummary(corp *pipeline.Corpus, headerStyle, numberStyle lipgloss.Style) {
	transcripts := 0
	wikis := 0
	for _, p := range corp.Passages {
		switch {
		case strings.HasPrefix(p.ID, "wiki:"):
			wikis++
		default:
			transcripts++
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Corpus:"))
	fmt.Printf("  transcript chunks: %s\n", numberStyle.Render(fmt.Sprintf("%d", transcripts)))
	fmt.Printf("  wiki articles:     %s\n", numberStyle.Render(fmt.Sprintf("%d", wikis)))
	fmt.Printf("  characters:        %s\n", numberStyle.Render(fmt.Sprintf("%d", corp.Names.Len())))
	if corp.Names.Len() > 0 {
		fmt.Printf("  names: %s\n", strings.Join(corp.Names.Names(), ", "))
	}
	fmt.Println()
}
