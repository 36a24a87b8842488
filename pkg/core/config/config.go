// Package config defines the explicit runtime configuration for the analysis
// pipeline. Every tunable lives here; components receive the struct (or a
// sub-struct) through their constructors and never read process environment
// themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// ModelConfig identifies one external model service endpoint.
type ModelConfig struct {
	Provider string `yaml:"provider"` // "gemini" or "ollama"
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // ollama only
	APIKey   string `yaml:"api_key"`  // gemini only; usually set via env
}

// RetryConfig controls the shared bounded-retry policy applied at every
// external call boundary.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// ExtractionConfig bounds the vision extraction fan-out.
type ExtractionConfig struct {
	PagesPerBatch     int     `yaml:"pages_per_batch"`
	MaxConcurrent     int     `yaml:"max_concurrent"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MinPageTextChars  int     `yaml:"min_page_text_chars"`
}

// KnowledgeConfig tunes chunking and retrieval for the valuation index.
type KnowledgeConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// Config is the full pipeline configuration.
type Config struct {
	FinancialsDir    string `yaml:"financials_dir"`
	ValuationPDFPath string `yaml:"valuation_pdf_path"`
	OutputDir        string `yaml:"output_dir"`

	VisionModel     ModelConfig `yaml:"vision_model"`
	CompletionModel ModelConfig `yaml:"completion_model"`
	EmbeddingModel  ModelConfig `yaml:"embedding_model"`

	Retry      RetryConfig      `yaml:"retry"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`

	// DatabaseURL enables optional persistence of completed runs. Empty
	// means filesystem-only output.
	DatabaseURL string `yaml:"database_url"`
}

// Default returns the conservative defaults used when no config file is given.
func Default() Config {
	return Config{
		FinancialsDir:    "data/financials",
		ValuationPDFPath: "data/valuation_parameters.pdf",
		OutputDir:        "data/output",
		VisionModel:      ModelConfig{Provider: "ollama", Model: "qwen2-vl:7b", BaseURL: "http://localhost:11434"},
		CompletionModel:  ModelConfig{Provider: "ollama", Model: "llama3.1:8b", BaseURL: "http://localhost:11434"},
		EmbeddingModel:   ModelConfig{Provider: "ollama", Model: "nomic-embed-text", BaseURL: "http://localhost:11434"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			CallTimeout: 2 * time.Minute,
		},
		Extraction: ExtractionConfig{
			PagesPerBatch:     4,
			MaxConcurrent:     4,
			RequestsPerSecond: 2,
			MinPageTextChars:  100,
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         4,
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. path may be empty, in which case only defaults and environment
// apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FILE_SHARE_PATH"); v != "" {
		c.FinancialsDir = v
	}
	if v := os.Getenv("VALUATION_PDF_PATH"); v != "" {
		c.ValuationPDFPath = v
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		for _, m := range []*ModelConfig{&c.VisionModel, &c.CompletionModel, &c.EmbeddingModel} {
			if m.Provider == "ollama" {
				m.BaseURL = v
			}
		}
	}
	if v := os.Getenv("VISION_MODEL"); v != "" {
		c.VisionModel.Model = v
	}
	if v := os.Getenv("ANALYSIS_MODEL"); v != "" {
		c.CompletionModel.Model = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		for _, m := range []*ModelConfig{&c.VisionModel, &c.CompletionModel, &c.EmbeddingModel} {
			if m.Provider == "gemini" && m.APIKey == "" {
				m.APIKey = v
			}
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}
}

// normalize clamps nonsensical values back to defaults so a sparse config
// file cannot zero out a tunable.
func (c *Config) normalize() {
	def := Default()
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = def.Retry.BaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = def.Retry.MaxDelay
	}
	if c.Retry.CallTimeout <= 0 {
		c.Retry.CallTimeout = def.Retry.CallTimeout
	}
	if c.Extraction.PagesPerBatch <= 0 {
		c.Extraction.PagesPerBatch = def.Extraction.PagesPerBatch
	}
	if c.Extraction.MaxConcurrent <= 0 {
		c.Extraction.MaxConcurrent = def.Extraction.MaxConcurrent
	}
	if c.Extraction.RequestsPerSecond <= 0 {
		c.Extraction.RequestsPerSecond = def.Extraction.RequestsPerSecond
	}
	if c.Extraction.MinPageTextChars <= 0 {
		c.Extraction.MinPageTextChars = def.Extraction.MinPageTextChars
	}
	if c.Knowledge.ChunkSize <= 0 {
		c.Knowledge.ChunkSize = def.Knowledge.ChunkSize
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		c.Knowledge.ChunkOverlap = def.Knowledge.ChunkOverlap
		if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
			c.Knowledge.ChunkOverlap = c.Knowledge.ChunkSize / 5
		}
	}
	if c.Knowledge.TopK <= 0 {
		c.Knowledge.TopK = def.Knowledge.TopK
	}
}
