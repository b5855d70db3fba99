package embed

import (
	"context"
	"sync"
	"time"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// fastRetry retries transient errors without real waiting.
func fastRetry() wgerrors.RetryConfig {
	return wgerrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
		ShouldRetry:  wgerrors.IsRetryable,
	}
}

// countingEmbedder records every batch it is asked to embed.
type countingEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
	inner   *StaticEmbedder
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: NewStaticEmbedder(8)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *countingEmbedder) Dimensions() int                { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string              { return "counting" }
func (c *countingEmbedder) Available(context.Context) bool { return true }
func (c *countingEmbedder) Close() error                   { return nil }
