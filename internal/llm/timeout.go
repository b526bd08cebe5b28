package llm

import (
	"context"
	"errors"
	"time"
)

// WithTimeout returns a Client that bounds every call by d. Expiry surfaces as
// a *TimeoutError; a non-positive d returns c unchanged.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{inner: c, timeout: d}
}

type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

func (c *timeoutClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.call(ctx, "generate content", func(ctx context.Context) (string, error) {
		return c.inner.GenerateContent(ctx, prompt, tier)
	})
}

func (c *timeoutClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.call(ctx, "generate json", func(ctx context.Context) (string, error) {
		return c.inner.GenerateJSON(ctx, prompt, tier)
	})
}

func (c *timeoutClient) GenerateForProfile(ctx context.Context, prompt string, profile string) (string, error) {
	return c.call(ctx, "generate for profile "+profile, func(ctx context.Context) (string, error) {
		return c.inner.GenerateForProfile(ctx, prompt, profile)
	})
}

func (c *timeoutClient) GetModel(tier ModelTier) string {
	return c.inner.GetModel(tier)
}

func (c *timeoutClient) Close() error {
	return c.inner.Close()
}

func (c *timeoutClient) call(ctx context.Context, operation string, fn func(context.Context) (string, error)) (string, error) {
	return callWithTimeout(ctx, c.timeout, operation, fn)
}

// EmbedderWithTimeout returns an Embedder that bounds every Embed call by d,
// reporting expiry as a *TimeoutError. A non-positive d returns e unchanged.
func EmbedderWithTimeout(e Embedder, d time.Duration) Embedder {
	if d <= 0 || e == nil {
		return e
	}
	return &timeoutEmbedder{inner: e, timeout: d}
}

type timeoutEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

func (e *timeoutEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return callWithTimeout(ctx, e.timeout, "embed", func(ctx context.Context) ([][]float32, error) {
		return e.inner.Embed(ctx, texts)
	})
}

func (e *timeoutEmbedder) Close() error {
	return e.inner.Close()
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, operation string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var zero T
	out, err := fn(callCtx)
	if err == nil {
		return out, nil
	}
	// Only the call's own deadline counts as a timeout; a cancelled parent is passed through.
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return zero, &TimeoutError{Operation: operation, Timeout: timeout, Cause: err}
	}
	return zero, err
}
