// Package ratelimit paces calls to the LLM endpoint so a run stays under the
// provider's requests-per-minute quota instead of failing on 429s.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing perMinute requests per minute with a
// burst of one. perMinute <= 0 disables pacing.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Completer is the shape of ai.LLMProvider.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LimitedCompleter is a decorator that waits for the limiter before
// delegating to the wrapped Completer.
type LimitedCompleter struct {
	inner   Completer
	limiter *rate.Limiter
}

// NewLimitedCompleter wraps inner. Completers sharing an endpoint should share a limiter.
func NewLimitedCompleter(inner Completer, limiter *rate.Limiter) *LimitedCompleter {
	return &LimitedCompleter{inner: inner, limiter: limiter}
}

// Complete blocks until a request is allowed, or ctx is done.
func (c *LimitedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}
	return c.inner.Complete(ctx, prompt)
}

// Embedder is the shape of vectorstore.Embedder.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LimitedEmbedder applies the same pacing to embedding requests.
type LimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewLimitedEmbedder wraps inner.
func NewLimitedEmbedder(inner Embedder, limiter *rate.Limiter) *LimitedEmbedder {
	return &LimitedEmbedder{inner: inner, limiter: limiter}
}

// Name reports the wrapped embedder's name.
func (e *LimitedEmbedder) Name() string { return e.inner.Name() }

// Embed blocks until a request is allowed, or ctx is done.
func (e *LimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return e.inner.Embed(ctx, texts)
}
