package embed

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedAll_PreservesOrderAcrossWorkers(t *testing.T) {
	// Given: 10 texts, batches of 3, 3 workers
	inner := newCountingEmbedder()
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("paragraph number %d", i)
	}

	var mu sync.Mutex
	var last int
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 10, total)
		last = max(last, done)
	}

	// When
	vecs, err := EmbedAll(context.Background(), inner, texts, 3, 3, progress)

	// Then: one call per batch, output aligned with input
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls())
	require.Len(t, vecs, 10)
	for i, text := range texts {
		want, _ := inner.inner.Embed(context.Background(), text)
		assert.Equal(t, want, vecs[i], "index %d", i)
	}
	assert.Equal(t, 10, last)
}

func TestEmbedAll_PropagatesError(t *testing.T) {
	inner := newCountingEmbedder()
	inner.err = assert.AnError

	_, err := EmbedAll(context.Background(), inner, []string{"a", "b"}, 1, 2, nil)

	assert.ErrorIs(t, err, assert.AnError)
}

func TestEmbedAll_Empty(t *testing.T) {
	vecs, err := EmbedAll(context.Background(), newCountingEmbedder(), nil, 0, 0, nil)

	require.NoError(t, err)
	assert.Empty(t, vecs)
}
