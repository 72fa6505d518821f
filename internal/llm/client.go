// Package llm provides chat completions against OpenAI-compatible endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/gate"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

const defaultBaseBackoff = 1 * time.Second

// Client generates a completion for a system + user message pair.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// contentGenerator is the langchaingo surface OpenAIClient depends on.
// *openai.LLM satisfies it; tests substitute fakes.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// OpenAIClient implements Client with rate limiting and bounded retries.
//
// Every attempt waits on the rate limiter, then holds a slot on the shared
// gate for the duration of the upstream call. Attempts are retried with
// exponential backoff; a cancelled parent context stops the loop immediately.
type OpenAIClient struct {
	generator   contentGenerator
	gate        *gate.Gate
	logger      *logging.Logger
	limiter     *rate.Limiter
	maxRetries  int
	timeout     time.Duration
	baseBackoff time.Duration
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a completion client for OpenAI or any compatible
// endpoint (x.ai, ollama, ...).
func NewOpenAIClient(cfg config.LLMConfig, g *gate.Gate, logger *logging.Logger) (*OpenAIClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("llm base_url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if g == nil {
		return nil, errors.New("gate is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be non-negative, got %d", cfg.MaxRetries)
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests_per_second must be positive, got %f", cfg.RequestsPerSecond)
	}
	if cfg.Burst < 1 {
		return nil, fmt.Errorf("burst must be at least 1, got %d", cfg.Burst)
	}

	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		// langchaingo requires a token even for endpoints that ignore it
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &OpenAIClient{
		generator:   llm,
		gate:        g,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		timeout:     cfg.Timeout.Duration(),
		baseBackoff: defaultBaseBackoff,
	}, nil
}

// Complete implements Client.
//
// langchaingo does not expose upstream status codes, so any failure short of
// a parent-context cancellation counts as transient and is retried up to
// maxRetries times.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			c.logger.Warn(ctx, "retrying completion request",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}

		response, err := c.doRequest(ctx, system, user)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs one rate-limited, gated completion attempt.
func (c *OpenAIClient) doRequest(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	if err := c.gate.Acquire(ctx); err != nil {
		return "", err
	}
	defer c.gate.Release()

	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	response, err := c.generator.GenerateContent(attemptCtx, messages)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("empty response from API")
	}

	return response.Choices[0].Content, nil
}
