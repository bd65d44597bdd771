package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize       = 1000 // bytes
	defaultChunkOverlap    = 200  // bytes
	defaultTopK            = 3
	defaultMaxContextChars = 12000
	defaultTemperature     = 0.2
	defaultSessionCapacity = 128
	defaultQdrantDims      = 768
	defaultCollection      = "document_chunks"
	defaultVectorPath      = "./chromemdb"
)

// LLMConfig describes one OpenAI-compatible or Ollama endpoint.
type LLMConfig struct {
	Provider          string   `yaml:"provider"`
	BaseURL           string   `yaml:"base_url"`
	Key               string   `yaml:"key"`
	Model             string   `yaml:"model"`
	Temperature       *float64 `yaml:"temperature"` // nil means default, 0 is honoured
	MaxTokens         int      `yaml:"max_tokens"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

type RAGConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	VectorTopK      int    `yaml:"vector_top_k"`
	KeywordTopK     int    `yaml:"keyword_top_k"`
	RetrievalMode   string `yaml:"retrieval_mode"` // OR, AND
	PromptMode      string `yaml:"prompt_mode"`    // citation, plain
	Language        string `yaml:"language"`       // en, de
	MaxContextChars int    `yaml:"max_context_chars"`
	EncryptionKey   string `yaml:"encryption_key"`
}

type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
}

type VectorStoreConfig struct {
	Backend  string       `yaml:"backend"` // chromem, qdrant
	Path     string       `yaml:"path"`
	InMemory bool         `yaml:"in_memory"`
	Compress bool         `yaml:"compress"`
	Qdrant   QdrantConfig `yaml:"qdrant"`
}

type KeywordStoreConfig struct {
	Backend string `yaml:"backend"` // memory, postgres
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // pgdriver, pq
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type SessionConfig struct {
	Capacity int `yaml:"capacity"`
}

type Config struct {
	LogLevel     string             `yaml:"log_level"`
	LLM          LLMConfig          `yaml:"llm"`
	EmbedLLM     LLMConfig          `yaml:"embed_llm"`
	RAG          RAGConfig          `yaml:"rag"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	KeywordStore KeywordStoreConfig `yaml:"keyword_store"`
	Database     DatabaseConfig     `yaml:"database"`
	Session      SessionConfig      `yaml:"session"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
// Secrets that are left empty in the file are taken from the environment
// (a .env file in the working directory is honoured).
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	if c.LLM.Key == "" {
		c.LLM.Key = os.Getenv("OPENAI_API_KEY")
	}
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = os.Getenv("EMBEDDING_API_KEY")
	}
	if c.Database.Password == "" {
		c.Database.Password = os.Getenv("DATABASE_PASSWORD")
	}
	if c.RAG.EncryptionKey == "" {
		c.RAG.EncryptionKey = os.Getenv("VECTOR_ENCRYPTION_KEY")
	}
}

// ApplyDefaults fills every zero value with its default.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature == nil {
		t := defaultTemperature
		c.LLM.Temperature = &t
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.Provider == "ollama" && c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = "http://localhost:11434"
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = "nomic-embed-text"
	}

	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkOverlap = min(defaultChunkOverlap, c.RAG.ChunkSize/2)
	}
	if c.RAG.VectorTopK <= 0 {
		c.RAG.VectorTopK = defaultTopK
	}
	if c.RAG.KeywordTopK <= 0 {
		c.RAG.KeywordTopK = defaultTopK
	}
	c.RAG.RetrievalMode = strings.ToUpper(c.RAG.RetrievalMode)
	if c.RAG.RetrievalMode != "AND" {
		c.RAG.RetrievalMode = "OR"
	}
	c.RAG.PromptMode = strings.ToLower(c.RAG.PromptMode)
	if c.RAG.PromptMode != "plain" {
		c.RAG.PromptMode = "citation"
	}
	c.RAG.Language = strings.ToLower(c.RAG.Language)
	if c.RAG.Language != "de" {
		c.RAG.Language = "en"
	}
	if c.RAG.MaxContextChars <= 0 {
		c.RAG.MaxContextChars = defaultMaxContextChars
	}

	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = "chromem"
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = defaultVectorPath
	}
	if c.VectorStore.Qdrant.Collection == "" {
		c.VectorStore.Qdrant.Collection = defaultCollection
	}
	if c.VectorStore.Qdrant.Dimensions <= 0 {
		c.VectorStore.Qdrant.Dimensions = defaultQdrantDims
	}
	if c.KeywordStore.Backend == "" {
		c.KeywordStore.Backend = "memory"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Session.Capacity <= 0 {
		c.Session.Capacity = defaultSessionCapacity
	}
}
