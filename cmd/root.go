package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nightcity-labs/choom/internal/config"
	"github.com/nightcity-labs/choom/internal/pipeline"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "choom",
	Short: "Choom - Night City knowledge-base assistant",
	Long: `Choom answers questions about the world of Night City.

It indexes a game transcript and a wiki into a vector store, retrieves the
most relevant passages for a question using weighted cosine similarity, and
generates a grounded answer with an LLM.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "choom.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show detailed pipeline progress")
}

// loadPipelineConfig reads the config file and silences pipeline logging
// unless verbose output was requested.
func loadPipelineConfig() (pipeline.Config, error) {
	if !verbose {
		log.SetOutput(io.Discard)
	}

	app, err := config.Load(configPath)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return pipeline.FromAppConfig(app), nil
}
