package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"

	"draw-backend/internal/config"
)

// RequestTimeout bounds a single model call.
const RequestTimeout = 30 * time.Second

// ErrEmptyResponse is returned when the model answers without any text block.
var ErrEmptyResponse = errors.New("model returned no text")

// MessageCreator is the part of the Anthropic Messages API the client uses.
type MessageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Request is a single image-plus-text prompt.
type Request struct {
	Model       string
	System      string
	Text        string
	ImagePNG    []byte
	MaxTokens   int64
	Temperature float64

	// SingleAttempt makes exactly one model call; the caller owns retries.
	SingleAttempt bool
}

// Completion is the model's text answer plus usage telemetry.
type Completion struct {
	Text         string
	ModelID      string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Latency      time.Duration
}

type Client struct {
	messages   MessageCreator
	maxRetries int
	backoffs   []time.Duration
}

func New(messages MessageCreator, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		messages:   messages,
		maxRetries: maxRetries,
		backoffs:   []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// NewClient builds a client over the transport named by cfg.LLMProvider.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	var opts []option.RequestOption
	switch strings.ToLower(cfg.LLMProvider) {
	case config.ProviderAnthropic:
		opts = append(opts, option.WithAPIKey(cfg.AnthropicAPIKey))
	case config.ProviderBedrock:
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx))
	case config.ProviderVertex:
		opts = append(opts, vertex.WithGoogleAuth(ctx, cfg.VertexRegion, cfg.VertexProjectID))
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
	opts = append(opts, option.WithRequestTimeout(RequestTimeout), option.WithMaxRetries(0))

	client := anthropic.NewClient(opts...)
	return New(&client.Messages, cfg.InferenceMaxRetries), nil
}

// WithBackoffs replaces the delays between retries.
func (c *Client) WithBackoffs(backoffs ...time.Duration) *Client {
	c.backoffs = backoffs
	return c
}

// Complete sends req and returns the concatenated text blocks of the answer.
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   req.MaxTokens,
		Temperature: anthropic.Float(req.Temperature),
		System:      []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Text),
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(req.ImagePNG)),
			),
		},
	}

	attempts := c.maxRetries + 1
	if req.SingleAttempt {
		attempts = 1
	}

	var completion *Completion
	err := c.RetryWithBackoff(ctx, func() error {
		started := time.Now()
		message, err := c.messages.New(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		var parts []string
		for _, block := range message.Content {
			if block.Type == "text" {
				parts = append(parts, block.Text)
			}
		}
		text := strings.TrimSpace(strings.Join(parts, "\n"))
		if text == "" {
			return ErrEmptyResponse
		}

		modelID := string(message.Model)
		if modelID == "" {
			modelID = req.Model
		}
		completion = &Completion{
			Text:         text,
			ModelID:      modelID,
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
			TotalTokens:  message.Usage.InputTokens + message.Usage.OutputTokens,
			Latency:      time.Since(started),
		}
		return nil
	}, attempts)
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// RetryWithBackoff runs fn up to attempts times, sleeping between failures.
// Context cancellation stops the loop immediately.
func (c *Client) RetryWithBackoff(ctx context.Context, fn func() error, attempts int) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return fmt.Errorf("failed after %d attempts: %w", i+1, ctx.Err())
		}

		if i == attempts-1 || i >= len(c.backoffs) {
			continue
		}
		timer := time.NewTimer(c.backoffs[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("failed after %d attempts: %w", i+1, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed after %d retries: %w", attempts, lastErr)
}
