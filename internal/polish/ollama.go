package polish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

var _ Polisher = (*OllamaClient)(nil)

// OllamaClient talks to Ollama's /api/chat endpoint.
type OllamaClient struct {
	opts Options
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Polish implements Polisher.
func (c *OllamaClient) Polish(ctx context.Context, text string) (string, error) {
	if err := checkInput(text); err != nil {
		return "", err
	}

	req := ollamaChatRequest{
		Model:    c.opts.Model,
		Messages: messages(text),
	}
	req.Options.Temperature = *c.opts.Temperature

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return "", errors.NewCapabilityUnavailable("polish", fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.NewCapabilityUnavailable("polish", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(bodyBytes)))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", errors.NewServiceError(fmt.Sprintf("decode response: %v", err))
	}

	return checkOutput(chatResp.Message.Content)
}
