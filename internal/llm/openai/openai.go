// Package openai implements llm.Generator on top of any
// OpenAI-compatible chat completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docquery/internal/domain"
)

// Config holds the connection and sampling parameters for one client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Client calls a chat completion endpoint with a single user message
// per request. It is safe for concurrent use.
type Client struct {
	api         openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float64
}

func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is required", domain.ErrInvalidInput)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		api:         openai.NewClient(opts...),
		model:       cfg.Model,
		timeout:     timeout,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Generate sends the prompt as a single user message and returns the
// first choice's content. Failures are classified into the package's
// error taxonomy so callers can react without parsing messages.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(c.maxTokens)),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrEmptyUpstreamResponse)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: blank completion", domain.ErrEmptyUpstreamResponse)
	}
	return content, nil
}

func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return fmt.Errorf("%w: API Error: %d %s",
			domain.ErrUpstreamUnavailable, apierr.StatusCode, http.StatusText(apierr.StatusCode))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", domain.ErrUpstreamUnavailable)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
