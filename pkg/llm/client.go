// Package llm defines the language-model client port used by strategy
// generation and text analysis, with one implementation backed by any
// OpenAI-compatible chat completion API (a local inference server by
// default). The client never retries; retry policy belongs to the caller.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/config"
	"github.com/sortd-ai/sortd/pkg/logger"
)

// Client is the narrow contract the pipeline has with a language model.
type Client interface {
	// CompleteJSON sends a system and user prompt and returns the model's
	// raw response text, requesting JSON-object output where the backend
	// supports it.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient implements Client against an OpenAI-compatible endpoint.
type OpenAIClient struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a client from configuration. An empty BaseURL targets
// the public OpenAI endpoint; local servers expose the same API under /v1.
func NewClient(cfg config.LLMConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// CompleteJSON performs one chat completion. A timed-out or failed call
// returns an error for the caller's fallback policy; there is no internal
// retry.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		logger.G(ctx).WithError(err).
			WithField("model", c.model).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Warn("chat completion failed")
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}

	logger.G(ctx).WithField("model", c.model).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("chat completion succeeded")

	return resp.Choices[0].Message.Content, nil
}
