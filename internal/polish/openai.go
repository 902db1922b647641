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

var _ Polisher = (*OpenAIClient)(nil)

// OpenAIClient talks to an OpenAI-compatible /v1/chat/completions endpoint.
type OpenAIClient struct {
	opts Options
}

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Polish implements Polisher.
func (c *OpenAIClient) Polish(ctx context.Context, text string) (string, error) {
	if err := checkInput(text); err != nil {
		return "", err
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:       c.opts.Model,
		Messages:    messages(text),
		Temperature: *c.opts.Temperature,
	})
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return "", errors.NewCapabilityUnavailable("polish", fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.NewCapabilityUnavailable("polish", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(bodyBytes)))
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", errors.NewServiceError(fmt.Sprintf("decode response: %v", err))
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.NewServiceError("no choices returned")
	}

	return checkOutput(chatResp.Choices[0].Message.Content)
}
