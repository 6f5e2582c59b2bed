package goextract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/llm"
	"github.com/brunobiangulo/goextract/prompt"
	"github.com/brunobiangulo/goextract/schema"
)

// Config holds all configuration for the goextract engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.goextract/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path" toml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "goextract".
	DBName string `json:"db_name" yaml:"db_name" toml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.goextract/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir" toml:"storage_dir"`

	// LLM providers. An empty Chat provider leaves the engine without a
	// default agent; an empty Embedding provider disables vector search.
	Chat      LLMConfig `json:"chat" yaml:"chat" toml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding" toml:"embedding"`

	// Extraction
	// Variant is sectioned (default) or bare. SchemaPath names a JSON field
	// catalog; empty uses the built-in one. FailurePolicy is abort (default)
	// or isolate.
	Variant            string  `json:"variant" yaml:"variant" toml:"variant"`
	SchemaPath         string  `json:"schema_path" yaml:"schema_path" toml:"schema_path"`
	NumResults         int     `json:"num_results" yaml:"num_results" toml:"num_results"`
	MetadataPrefix     int     `json:"metadata_prefix" yaml:"metadata_prefix" toml:"metadata_prefix"`
	RetrievalThreshold int     `json:"retrieval_threshold" yaml:"retrieval_threshold" toml:"retrieval_threshold"`
	Concurrency        int     `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	FailurePolicy      string  `json:"failure_policy" yaml:"failure_policy" toml:"failure_policy"`
	Temperature        float64 `json:"temperature" yaml:"temperature" toml:"temperature"`

	// Retrieval weights for RRF
	WeightVector float64 `json:"weight_vector" yaml:"weight_vector" toml:"weight_vector"`
	WeightFTS    float64 `json:"weight_fts" yaml:"weight_fts" toml:"weight_fts"`

	// Chunking
	MaxChunkTokens int `json:"max_chunk_tokens" yaml:"max_chunk_tokens" toml:"max_chunk_tokens"`
	ChunkOverlap   int `json:"chunk_overlap" yaml:"chunk_overlap" toml:"chunk_overlap"`

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim" toml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	// Provider is one of ollama, lmstudio, openai, openrouter, groq, xai,
	// gemini or custom.
	Provider       string `json:"provider" yaml:"provider" toml:"provider"`
	Model          string `json:"model" yaml:"model" toml:"model"`
	BaseURL        string `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey         string `json:"api_key" yaml:"api_key" toml:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty" toml:"max_retries,omitempty"`

	// RequestsPerSecond throttles calls to the provider; zero is unlimited.
	// Burst is the number of calls allowed at once (default 1).
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty" toml:"burst,omitempty"`
}

func (c LLMConfig) provider() llm.Config {
	return llm.Config{
		Provider:   c.Provider,
		Model:      c.Model,
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		Timeout:    time.Duration(c.TimeoutSeconds) * time.Second,
		MaxRetries: c.MaxRetries,

		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Database is stored in ~/.goextract/goextract.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "goextract",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		Variant:            string(prompt.Sectioned),
		NumResults:         extraction.DefaultNumResults,
		MetadataPrefix:     extraction.DefaultMetadataPrefix,
		RetrievalThreshold: extraction.DefaultRetrievalThreshold,
		Concurrency:        1,
		FailurePolicy:      string(extraction.Abort),
		WeightVector:       1.0,
		WeightFTS:          1.0,
		MaxChunkTokens:     512,
		ChunkOverlap:       64,
		EmbeddingDim:       768,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "goextract"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".goextract", name+".db")
	}
}

// loadSchema returns the field catalog named by SchemaPath, or the built-in
// guided catalog.
func (c *Config) loadSchema() (*schema.Schema, error) {
	if c.SchemaPath == "" {
		return schema.Guided(), nil
	}
	f, err := os.Open(c.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening schema: %v", ErrInvalidConfig, err)
	}
	defer f.Close()
	s, err := schema.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, c.SchemaPath, err)
	}
	return s, nil
}

// LoadConfigFile returns DefaultConfig overlaid with the file at path, JSON
// or TOML by extension. An empty path returns the defaults. A "chat" or
// "embedding" block in the file replaces the default provider block
// wholesale, so a hosted provider does not inherit the local base URL.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}

	unmarshal := json.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}

	var keys map[string]any
	if err := unmarshal(data, &keys); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	if _, ok := keys["chat"]; ok {
		cfg.Chat = LLMConfig{}
	}
	if _, ok := keys["embedding"]; ok {
		cfg.Embedding = LLMConfig{}
	}
	if err := unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides config fields from GOEXTRACT_* variables, then fills
// missing API keys.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.DBPath, "GOEXTRACT_DB_PATH")
	set(&c.SchemaPath, "GOEXTRACT_SCHEMA_PATH")
	set(&c.Variant, "GOEXTRACT_VARIANT")
	set(&c.FailurePolicy, "GOEXTRACT_FAILURE_POLICY")
	set(&c.Chat.Provider, "GOEXTRACT_CHAT_PROVIDER")
	set(&c.Chat.Model, "GOEXTRACT_CHAT_MODEL")
	set(&c.Chat.BaseURL, "GOEXTRACT_CHAT_BASE_URL")
	set(&c.Chat.APIKey, "GOEXTRACT_CHAT_API_KEY")
	set(&c.Embedding.Provider, "GOEXTRACT_EMBED_PROVIDER")
	set(&c.Embedding.Model, "GOEXTRACT_EMBED_MODEL")
	set(&c.Embedding.BaseURL, "GOEXTRACT_EMBED_BASE_URL")
	set(&c.Embedding.APIKey, "GOEXTRACT_EMBED_API_KEY")
	if v := getenv("GOEXTRACT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}

	c.FillAPIKeys(getenv)
}

// FillAPIKeys sets missing provider API keys from the provider's well-known
// environment variable (OPENAI_API_KEY, GROQ_API_KEY, ...).
func (c *Config) FillAPIKeys(getenv func(string) string) {
	for _, lc := range []*LLMConfig{&c.Chat, &c.Embedding} {
		if lc.APIKey != "" {
			continue
		}
		switch lc.Provider {
		case "openai":
			lc.APIKey = getenv("OPENAI_API_KEY")
		case "groq":
			lc.APIKey = getenv("GROQ_API_KEY")
		case "gemini":
			lc.APIKey = getenv("GEMINI_API_KEY")
		case "openrouter":
			lc.APIKey = getenv("OPENROUTER_API_KEY")
		case "xai":
			lc.APIKey = getenv("XAI_API_KEY")
		}
	}
}
