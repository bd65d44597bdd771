package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// NewModel creates the chat model for the configured provider.
func NewModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	switch strings.ToLower(llmConfig.Provider) {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}

// Client sends single prompts to a chat model. Calls are paced by an optional
// rate limiter and are never retried here: a failed call is reported as is.
type Client struct {
	llm     llms.Model
	cfg     config.LLMConfig
	limiter *rate.Limiter
}

func NewClient(llm llms.Model, llmConfig config.LLMConfig) *Client {
	c := &Client{llm: llm, cfg: llmConfig}
	if llmConfig.RequestsPerSecond > 0 {
		burst := max(llmConfig.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(llmConfig.RequestsPerSecond), burst)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Generate sends prompt as a single human message and returns the text of the
// first choice with any <think> block removed.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	var opts []llms.CallOption
	if c.cfg.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*c.cfg.Temperature))
	}
	if c.cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.cfg.MaxTokens))
	}

	log.Debug().Str("model", c.cfg.Model).Int("prompt_len", len(prompt)).Msg("Generating content")
	res, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", fmt.Errorf("no choices returned: %w", models.ErrEmptyAnswer)
	}

	text := strings.TrimSpace(thinkRe.ReplaceAllString(res.Choices[0].Content, ""))
	if text == "" {
		return "", models.ErrEmptyAnswer
	}
	return text, nil
}
