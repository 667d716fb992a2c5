package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the helpdesk pipeline.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Generation GenerationConfig `yaml:"generation"`
	Tickets    TicketsConfig    `yaml:"tickets"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CollectionConfig identifies the knowledge-base collection and its
// storage backend. The collection's embedding dimension and distance
// metric are fixed at first write; changing the backend or the
// embedding model means re-ingesting into a fresh collection.
type CollectionConfig struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"` // "bolt", "pgvector", "memory"
	Path    string `yaml:"path"`    // bolt database file (default .helpdesk/index.db)
	DSNEnv  string `yaml:"dsn_env"` // environment variable with the Postgres DSN (pgvector backend)
}

// ChunkingConfig holds default chunking parameters, overridable per
// ingestion call. Sizes are in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "openai", "ollama", "mock"
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrieveConfig holds retrieval defaults. The threshold is tuned
// against the collection's metric and embedding model; 1.3 is a
// starting point for the defaults shipped here, not a universal
// constant.
type RetrieveConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

// GenerationConfig configures the text-generation collaborator.
type GenerationConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	TokenLimit  int    `yaml:"token_limit"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// TicketsConfig configures the support-queue store escalation routes
// unanswered questions into.
type TicketsConfig struct {
	DSNEnv  string `yaml:"dsn_env"`
	Subject string `yaml:"subject"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			Name:    "knowledge_base",
			Backend: "bolt",
			DSNEnv:  "VECTOR_DATABASE_URL",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    500,
			ChunkOverlap: 70,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   1536,
			BatchSize:   100,
			TimeoutSecs: 60,
		},
		Retrieve: RetrieveConfig{
			TopK:      3,
			Threshold: 1.3,
		},
		Generation: GenerationConfig{
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			TokenLimit:  100,
			TimeoutSecs: 120,
		},
		Tickets: TicketsConfig{
			DSNEnv:  "DATABASE_URL",
			Subject: "New question",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (helpdesk.yaml,
// then .helpdesk/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "helpdesk.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".helpdesk", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the default bolt index database path.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".helpdesk", "index.db")
}

// EnsureDataDir ensures the .helpdesk directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".helpdesk"), 0755)
}
