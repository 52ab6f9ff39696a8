// Package genai generates interview session preambles using the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// ErrNoChoicesReturned indicates the API response contained no completion
// choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

const systemPrompt = "You are an interview coach introducing a timed practice " +
	"interview session. Write a short, encouraging preamble for the candidate. " +
	"Mention the topic and the difficulty. Two sentences at most, no markdown."

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionAdapter adapts the OpenAI SDK's completion service to chatService.
type completionAdapter struct {
	client openai.Client
}

func (a completionAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	// APIKey is the OpenAI API key. Falls back to OPENAI_API_KEY.
	APIKey string
	// Model is the chat model to use. Defaults to GPT-4o-mini.
	Model string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxCompletionTokens caps the completion length.
	MaxCompletionTokens int64
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service for preamble generation.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	maxCompletionTokens int64
}

// NewClient creates a GenAI client. The API key comes from options or the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 200,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: client created", "model", cfg.Model)
	return &Client{
		chat:                completionAdapter{client: cli},
		model:               cfg.Model,
		temperature:         cfg.Temperature,
		maxCompletionTokens: cfg.MaxCompletionTokens,
	}, nil
}

// Preamble generates the introduction message for a confirmed interview
// selection.
func (c *Client) Preamble(ctx context.Context, categoryPath string, tier models.Complexity) (string, error) {
	userPrompt := fmt.Sprintf("Topic: %s. Difficulty: %s.", categoryPath, tier)
	out, err := c.generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate preamble: %w", err)
	}
	return out, nil
}

// generate runs one chat completion and returns the first choice's content.
func (c *Client) generate(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxCompletionTokens),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("genai.generate: completion failed", "error", err, "model", c.model)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("genai.generate: completion succeeded", "model", c.model, "length", len(content))
	return content, nil
}
