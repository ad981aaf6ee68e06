package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sysmentor/sysmentor-backend/internal/config"
)

// ErrUpstream marks transport or service failures of the external
// generative model. Callers match it with errors.Is.
var ErrUpstream = errors.New("upstream model error")

// Client is the single surface the conversation subsystem needs from
// the external generative-text service: prompt in, completion out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements Client against an OpenAI-compatible API
type OpenAIClient struct {
	client     *openai.Client
	model      string
	maxRetries int
}

// NewOpenAIClient creates a client from configuration
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Generate performs a single-prompt completion. Failures are retried
// only when max_retries is configured above its default of 0.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("empty completion")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}
