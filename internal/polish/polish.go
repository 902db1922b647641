// Package polish sends dictated text to a language model for punctuation and
// paragraphing cleanup.
package polish

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

// Instruction is the system prompt sent with every request.
const Instruction = "You are an editor cleaning up dictated text. Fix punctuation, capitalization " +
	"and paragraph breaks, and remove filler words and false starts. Preserve the author's " +
	"voice, word choice and meaning. Do not summarize, shorten or add content. " +
	"Return only the cleaned text, with no preamble or commentary."

// DefaultTemperature keeps the model close to the source text.
const DefaultTemperature = 0.2

// Polisher cleans up dictated text.
type Polisher interface {
	Polish(ctx context.Context, text string) (string, error)
}

// Options configure a provider client.
type Options struct {
	BaseURL     string
	Model       string
	APIKey      string

	// Temperature is sent as given, zero included. Nil means DefaultTemperature.
	Temperature *float64

	// HTTPClient defaults to a non-shared client with a generous timeout.
	HTTPClient *http.Client
}

// New creates a client for provider. Supported providers: "ollama", and
// "openai" for any OpenAI-compatible endpoint (LM Studio, hosted APIs).
func New(provider string, opts Options) (Polisher, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL(provider)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = DefaultModel(provider)
	}
	if opts.Temperature == nil {
		t := DefaultTemperature
		opts.Temperature = &t
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = cleanhttp.DefaultClient()
		opts.HTTPClient.Timeout = 3 * time.Minute
	}

	switch provider {
	case "ollama":
		return &OllamaClient{opts: opts}, nil
	case "openai", "lmstudio":
		return &OpenAIClient{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported polish provider: %s (supported: ollama, openai)", provider)
	}
}

// DefaultURL returns the default base URL for a provider.
func DefaultURL(provider string) string {
	switch provider {
	case "ollama":
		return "http://localhost:11434"
	case "openai", "lmstudio":
		return "http://localhost:1234"
	default:
		return ""
	}
}

// DefaultModel returns the default model name for a provider.
func DefaultModel(provider string) string {
	switch provider {
	case "ollama":
		return "llama3.2"
	case "openai", "lmstudio":
		return "gpt-4o-mini"
	default:
		return ""
	}
}

// chatMessage is shared by both chat APIs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func messages(text string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: Instruction},
		{Role: "user", Content: text},
	}
}

func checkInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewInvalidRequest("text to polish is empty")
	}
	return nil
}

func checkOutput(out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.NewServiceError("model returned no text")
	}
	return out, nil
}
