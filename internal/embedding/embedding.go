package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates an embedder for the configured provider (openai or ollama).
func NewEmbedder(llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	switch strings.ToLower(llmConfig.Provider) {
	case "ollama":
		return NewOllamaEmbedder(llmConfig)
	case "openai", "":
		return NewOpenAIEmbedder(llmConfig)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", llmConfig.Provider)
	}
}

// NewOpenAIEmbedder targets any OpenAI-compatible endpoint (OpenAI, OpenRouter, ...).
func NewOpenAIEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// new ollama embedder
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedTexts embeds texts in one batch and checks that every text got a vector.
func EmbedTexts(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		log.Info().Msg("No texts to embed")
		return nil, nil
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
