package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

type generateFunc func(ctx context.Context, req ports.GenerateRequest) (*genai.GenerateContentResponse, error)

// Client calls the Gemini API with JSON output forced on every model.
type Client struct {
	generate generateFunc
	close    func() error
	executor *resilience.Executor
}

func New(ctx context.Context, apiKey string, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "gemini", errors.New("api key is required"))
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "gemini client", err)
	}

	generate := func(ctx context.Context, req ports.GenerateRequest) (*genai.GenerateContentResponse, error) {
		model := client.GenerativeModel(req.Model)
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
		model.ResponseMIMEType = "application/json"
		model.SetTemperature(0)
		if req.MaxOutputTokens > 0 {
			model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
		}
		return model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	}
	return newClient(generate, client.Close, executor), nil
}

func newClient(generate generateFunc, closeFn func() error, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &Client{generate: generate, close: closeFn, executor: executor}
}

func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	var text string
	err := c.executor.Execute(ctx, "gemini.generate:"+req.Model, func(callCtx context.Context) error {
		resp, err := c.generate(callCtx, req)
		if err != nil {
			return err
		}
		text = responseText(resp)
		return nil
	}, classifyGeminiError)
	if err != nil {
		return "", toDomainError("gemini generate "+req.Model, err)
	}
	return text, nil
}

func (c *Client) Close() error {
	return c.close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func describe(err error) string {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Sprintf("response blocked: %v", blocked)
	}
	return err.Error()
}
