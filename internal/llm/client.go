// Package llm wraps Genkit text generation behind a small completion client
// with rate limiting and retry on transient provider failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/koopa0/chinchilla/internal/log"
)

// ErrEmptyResponse indicates the model returned no usable text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// RetryConfig configures backoff for transient provider errors.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Options configures a Client.
type Options struct {
	// ModelName is the provider-qualified model, e.g. "googleai/gemini-2.5-flash".
	ModelName   string
	Temperature float32
	// Timeout bounds each individual completion call, retries included
	// get a fresh budget. Zero means 30 seconds.
	Timeout time.Duration
	// Limiter throttles calls across all requests. Nil disables throttling.
	Limiter *rate.Limiter
	Retry   RetryConfig
	Logger  log.Logger
}

// generateFunc issues one generation attempt. Swappable in tests.
type generateFunc func(ctx context.Context, system, prompt string) (string, error)

// Client is a shared completion client. Safe for concurrent use.
type Client struct {
	generate generateFunc
	opts     Options
}

// New creates a Client backed by an initialized Genkit instance.
func New(g *genkit.Genkit, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialInterval == 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}

	gen := func(ctx context.Context, system, prompt string) (string, error) {
		genOpts := []ai.GenerateOption{
			ai.WithModelName(opts.ModelName),
			ai.WithPrompt(prompt),
			ai.WithConfig(map[string]any{"temperature": opts.Temperature}),
		}
		if system != "" {
			genOpts = append(genOpts, ai.WithSystem(system))
		}
		resp, err := genkit.Generate(ctx, g, genOpts...)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return &Client{generate: gen, opts: opts}
}

// Complete sends one system+user prompt pair and returns the model's text,
// retrying transient failures with exponential backoff. The rate limiter is
// consulted before every attempt so retries cannot stampede the provider.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var lastErr error
	delay := c.opts.Retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.opts.Retry.MaxRetries; attempt++ {
		if c.opts.Limiter != nil {
			if err := c.opts.Limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		text, err := c.generate(ctx, system, prompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyResponse
			}
			c.opts.Logger.Debug("completion succeeded",
				"attempts", attempt+1, "elapsed", time.Since(start))
			return text, nil
		}
		lastErr = err

		if !retryableError(err) {
			return "", fmt.Errorf("generate: %w", err)
		}
		if attempt == c.opts.Retry.MaxRetries {
			break
		}

		c.opts.Logger.Debug("retrying after transient error",
			"attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.opts.Retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		c.opts.Retry.MaxRetries, time.Since(start), lastErr)
}
