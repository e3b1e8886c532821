// Package config loads the application configuration from a YAML file,
// falling back to defaults when no file exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// RetrievalConfig configures passage scoring and selection.
type RetrievalConfig struct {
	WikiWeight     float64 `yaml:"wiki_weight"`
	CharacterBonus float64 `yaml:"character_bonus"`
	TopK           int     `yaml:"top_k"`
}

// ChunkerConfig configures how the transcript is split into chunks.
type ChunkerConfig struct {
	LinesPerChunk int `yaml:"lines_per_chunk"`
	OverlapLines  int `yaml:"overlap_lines"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// MilvusConfig contains connection details for the Milvus index.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// LLMConfig configures the answer-generation model.
type LLMConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	LLM       LLMConfig       `yaml:"llm"`
}

// Load reads a config from the given path. A missing file returns defaults;
// a present but malformed or invalid file is an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the stock configuration.
func Default() *AppConfig {
	return &AppConfig{
		Retrieval: RetrievalConfig{
			WikiWeight:     0.7,
			CharacterBonus: 0.05,
			TopK:           3,
		},
		Chunker: ChunkerConfig{
			LinesPerChunk: 12,
			OverlapLines:  2,
		},
		Embedder: EmbedderConfig{
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Milvus: MilvusConfig{
			Address:    "localhost:19530",
			Collection: "choom_passages",
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 1000,
		},
	}
}

// Validate checks all recognized options once at load time.
func (c *AppConfig) Validate() error {
	if c.Retrieval.WikiWeight < 0 || c.Retrieval.WikiWeight > 1 {
		return fmt.Errorf("%w: retrieval.wiki_weight must be in [0, 1], got %v", ErrInvalidConfig, c.Retrieval.WikiWeight)
	}
	if c.Retrieval.CharacterBonus < 0 {
		return fmt.Errorf("%w: retrieval.character_bonus must be >= 0, got %v", ErrInvalidConfig, c.Retrieval.CharacterBonus)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive, got %d", ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("%w: embedder.dimension must be positive, got %d", ErrInvalidConfig, c.Embedder.Dimension)
	}
	if c.Chunker.LinesPerChunk <= 0 {
		return fmt.Errorf("%w: chunker.lines_per_chunk must be positive, got %d", ErrInvalidConfig, c.Chunker.LinesPerChunk)
	}
	if c.Chunker.OverlapLines < 0 || c.Chunker.OverlapLines >= c.Chunker.LinesPerChunk {
		return fmt.Errorf("%w: chunker.overlap_lines must be in [0, lines_per_chunk), got %d", ErrInvalidConfig, c.Chunker.OverlapLines)
	}
	return nil
}

// applyDefaults fills in zero-valued fields a partial config file left out.
// TopK, weights and overlap are left alone: zero is a meaningful (possibly
// invalid) value there and Validate reports it.
func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = def.Embedder.Dimension
	}
	if cfg.Chunker.LinesPerChunk == 0 {
		cfg.Chunker.LinesPerChunk = def.Chunker.LinesPerChunk
	}
	if cfg.Milvus.Address == "" {
		cfg.Milvus.Address = def.Milvus.Address
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = def.Milvus.Collection
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
}
