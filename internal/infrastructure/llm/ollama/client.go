package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server; each request names its own model.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	body := generateRequest{
		Model:  req.Model,
		System: req.SystemPrompt,
		Prompt: req.UserPrompt,
		Stream: false,
		Format: "json",
	}
	if req.MaxOutputTokens > 0 {
		body.Options = map[string]any{"num_predict": req.MaxOutputTokens, "temperature": 0}
	}

	var response generateResponse
	err := c.executor.Execute(ctx, "ollama.generate:"+req.Model, func(callCtx context.Context) error {
		var err error
		response, err = c.generate(callCtx, body)
		return err
	}, classifyOllamaError)
	if err != nil {
		return "", toDomainError("ollama generate "+req.Model, err)
	}
	return strings.TrimSpace(response.Response), nil
}
