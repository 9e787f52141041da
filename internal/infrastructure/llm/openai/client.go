package openai

import (
	"context"
	"errors"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

// Client calls any OpenAI-compatible chat completions endpoint.
type Client struct {
	api      *goopenai.Client
	executor *resilience.Executor
}

func New(apiKey, baseURL string, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai", errors.New("api key is required"))
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), executor: executor}, nil
}

func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	request := goopenai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: 0,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var text string
	err := c.executor.Execute(ctx, "openai.chat_completion:"+req.Model, func(callCtx context.Context) error {
		resp, err := c.api.CreateChatCompletion(callCtx, request)
		if err != nil {
			return err
		}
		text = ""
		if len(resp.Choices) > 0 {
			text = strings.TrimSpace(resp.Choices[0].Message.Content)
		}
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return "", toDomainError("openai generate "+req.Model, err)
	}
	return text, nil
}
