package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultVectorDimension matches text-embedding-3-small truncated output.
	DefaultVectorDimension = 768

	// DefaultDecayWeight is the per-day exponent used when decay is
	// requested without an explicit weight.
	DefaultDecayWeight = 0.1

	// DefaultDecayRatio blends 30% decay into the adjusted score.
	DefaultDecayRatio = 0.3
)

// Config holds all configuration for mnemos.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Backend is "qdrant" or "chromem".
	Backend string `mapstructure:"backend"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// QdrantConfig holds Qdrant vector database connection settings.
type QdrantConfig struct {
	Host     string `mapstructure:"host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	UseTLS   bool   `mapstructure:"use_tls"`

	// CollectionPrefix names the per-category collections, e.g.
	// "mnemos" yields mnemos_episodic and mnemos_semantic.
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai", "ollama", or "mock".
	Provider string       `mapstructure:"provider"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

// OpenAIConfig holds OpenAI embeddings API settings.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of OpenAIConfig with the API key masked.
func (c OpenAIConfig) String() string {
	return fmt.Sprintf("OpenAIConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// OllamaConfig holds Ollama embedding service settings.
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// MemoryConfig holds vector storage settings.
type MemoryConfig struct {
	VectorDimension uint64 `mapstructure:"vector_dimension"`
}

// RetrievalConfig holds defaults for weighted search and time decay.
type RetrievalConfig struct {
	DecayWeight float64 `mapstructure:"decay_weight"`
	DecayRatio  float64 `mapstructure:"decay_ratio"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("store.backend", "qdrant")

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.grpc_port", 6334)
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant.collection_prefix", "mnemos")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.openai.model", "text-embedding-3-small")
	v.SetDefault("embedding.ollama.base_url", "http://localhost:11434")
	v.SetDefault("embedding.ollama.model", "nomic-embed-text")

	v.SetDefault("memory.vector_dimension", DefaultVectorDimension)

	v.SetDefault("retrieval.decay_weight", DefaultDecayWeight)
	v.SetDefault("retrieval.decay_ratio", DefaultDecayRatio)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".mnemos"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("MNEMOS")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("embedding.openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("store.backend", "MNEMOS_STORE_BACKEND")
	_ = v.BindEnv("qdrant.host", "MNEMOS_QDRANT_HOST")
	_ = v.BindEnv("qdrant.grpc_port", "MNEMOS_QDRANT_GRPC_PORT")
	_ = v.BindEnv("embedding.provider", "MNEMOS_EMBEDDING_PROVIDER")
	_ = v.BindEnv("embedding.ollama.base_url", "MNEMOS_OLLAMA_BASE_URL")
	_ = v.BindEnv("api.listen_addr", "MNEMOS_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "MNEMOS_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "qdrant", "chromem":
	default:
		return fmt.Errorf("store.backend must be \"qdrant\" or \"chromem\", got %q", c.Store.Backend)
	}
	if c.Store.Backend == "qdrant" {
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant.host must not be empty")
		}
		if c.Qdrant.GRPCPort <= 0 {
			return fmt.Errorf("qdrant.grpc_port must be greater than 0")
		}
	}
	if c.Qdrant.CollectionPrefix == "" {
		return fmt.Errorf("qdrant.collection_prefix must not be empty")
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "mock":
	default:
		return fmt.Errorf("embedding.provider must be \"openai\", \"ollama\", or \"mock\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "ollama" && c.Embedding.Ollama.BaseURL == "" {
		return fmt.Errorf("embedding.ollama.base_url must not be empty")
	}
	if c.Memory.VectorDimension == 0 {
		return fmt.Errorf("memory.vector_dimension must be greater than 0")
	}
	if c.Retrieval.DecayWeight < 0 {
		return fmt.Errorf("retrieval.decay_weight must be >= 0")
	}
	if c.Retrieval.DecayRatio < 0 || c.Retrieval.DecayRatio > 1 {
		return fmt.Errorf("retrieval.decay_ratio must be between 0 and 1")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
