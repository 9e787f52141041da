package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes bounds a non-streamed generate reply.
const maxResponseBytes = 4 << 20

// apiError is the body Ollama sends with non-2xx statuses.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) generate(ctx context.Context, payload generateRequest) (generateResponse, error) {
	var out generateResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("ollama generate request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return out, statusError(payload.Model, resp.StatusCode, limited)
	}
	if err := json.NewDecoder(limited).Decode(&out); err != nil {
		return out, fmt.Errorf("decode generate response: %w", err)
	}
	return out, nil
}

func statusError(model string, code int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 2048))
	message := strings.TrimSpace(string(raw))
	var parsed apiError
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		message = parsed.Error
	}
	return &HTTPStatusError{Model: model, StatusCode: code, Message: message}
}
