package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

func TestHybridRanker_CatDog(t *testing.T) {
	// Given: "1" mentions cat and is the nearest neighbour
	r, _, _, _ := newCatDogRanker(DefaultFusionConfig())

	// When
	results, err := r.Rank(context.Background(), "cat", catDogCorpus(), 5)

	// Then: "1" leads with RRF + BM25, "2" has RRF only
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)
	assert.Greater(t, results[0].Lexical, 0.0)
	assert.InDelta(t, 1.0/61+results[0].Lexical, results[0].Score, 1e-12)
	assert.Equal(t, "2", results[1].ID)
	assert.Equal(t, 0.0, results[1].Lexical)
	assert.InDelta(t, 1.0/62, results[1].Score, 1e-12)
}

func TestHybridRanker_ResultCountBoundedByLimitAndCorpus(t *testing.T) {
	corpus := make([]lexical.Document, 10)
	hits := make([]store.VectorResult, 10)
	for i := range corpus {
		id := fmt.Sprintf("p%d", i)
		corpus[i] = lexical.Document{ID: id, Content: fmt.Sprintf("paragraph %d about history", i)}
		hits[i] = store.VectorResult{ID: id, Distance: float32(i)}
	}
	r := NewHybridRanker(&fakeEmbedder{vec: []float32{1}}, &fakeIndex{hits: hits}, &countingBuilder{}, DefaultFusionConfig())

	for _, limit := range []int{1, 3, 10} {
		results, err := r.Rank(context.Background(), "history", corpus, limit)
		require.NoError(t, err)
		assert.Len(t, results, limit)
	}

	// A one-paragraph corpus yields at most one result.
	one := []lexical.Document{corpus[0]}
	r = NewHybridRanker(&fakeEmbedder{vec: []float32{1}}, &fakeIndex{hits: hits[:1]}, &countingBuilder{}, DefaultFusionConfig())
	results, err := r.Rank(context.Background(), "history", one, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestHybridRanker_DefaultLimit(t *testing.T) {
	corpus := make([]lexical.Document, 8)
	for i := range corpus {
		corpus[i] = lexical.Document{ID: fmt.Sprintf("p%d", i), Content: "text"}
	}
	r := NewHybridRanker(&fakeEmbedder{vec: []float32{1}}, &fakeIndex{}, &countingBuilder{}, DefaultFusionConfig())

	results, err := r.Rank(context.Background(), "text", corpus, 0)

	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)
}

func TestHybridRanker_AsksIndexForLimitNeighbours(t *testing.T) {
	// Given: an index with more neighbours than the limit
	hits := []store.VectorResult{{ID: "1"}, {ID: "2"}}
	idx := &fakeIndex{hits: hits}
	r := NewHybridRanker(&fakeEmbedder{vec: []float32{1}}, idx, &countingBuilder{}, DefaultFusionConfig())

	// When
	results, err := r.Rank(context.Background(), "dog", catDogCorpus(), 1)

	// Then: only the first neighbour contributes RRF
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].ID, "BM25 for dog outweighs RRF of rank 1")
}

func TestHybridRanker_Idempotent(t *testing.T) {
	r, _, _, _ := newCatDogRanker(DefaultFusionConfig())

	first, err := r.Rank(context.Background(), "the cat", catDogCorpus(), 5)
	require.NoError(t, err)
	second, err := r.Rank(context.Background(), "the cat", catDogCorpus(), 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHybridRanker_EmptyQueryFailsBeforeAnyCall(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		r, emb, idx, b := newCatDogRanker(DefaultFusionConfig())

		_, err := r.Rank(context.Background(), q, catDogCorpus(), 5)

		require.ErrorIs(t, err, ErrEmptyQuery)
		assert.Zero(t, emb.calls.Load())
		assert.Zero(t, idx.calls.Load())
		assert.Zero(t, b.builds.Load())
	}
}

func TestHybridRanker_InvalidLimit(t *testing.T) {
	r, emb, _, _ := newCatDogRanker(DefaultFusionConfig())

	_, err := r.Rank(context.Background(), "cat", catDogCorpus(), -1)

	require.ErrorIs(t, err, ErrInvalidLimit)
	assert.Zero(t, emb.calls.Load())
}

func TestHybridRanker_EmptyCorpus(t *testing.T) {
	r, emb, _, _ := newCatDogRanker(DefaultFusionConfig())

	_, err := r.Rank(context.Background(), "cat", nil, 5)

	require.ErrorIs(t, err, ErrEmptyCorpus)
	assert.Equal(t, wgerrors.ErrCodeCorpusEmpty, wgerrors.GetCode(err))
	assert.Zero(t, emb.calls.Load())
}

func TestHybridRanker_PropagatesTransportErrorsUnchanged(t *testing.T) {
	cause := wgerrors.TransportError("ollama", errors.New("connection refused"))

	t.Run("embedder", func(t *testing.T) {
		r, emb, idx, _ := newCatDogRanker(DefaultFusionConfig())
		emb.err = cause

		_, err := r.Rank(context.Background(), "cat", catDogCorpus(), 5)

		assert.Same(t, cause, err)
		assert.Zero(t, idx.calls.Load())
	})

	t.Run("index", func(t *testing.T) {
		r, _, idx, b := newCatDogRanker(DefaultFusionConfig())
		idx.err = cause

		_, err := r.Rank(context.Background(), "cat", catDogCorpus(), 5)

		assert.Same(t, cause, err)
		assert.Zero(t, b.builds.Load())
	})

	t.Run("lexical builder", func(t *testing.T) {
		r, _, _, b := newCatDogRanker(DefaultFusionConfig())
		b.err = cause

		_, err := r.Rank(context.Background(), "cat", catDogCorpus(), 5)

		assert.Same(t, cause, err)
	})
}

func TestHybridRanker_NeighbourMissingFromCorpus(t *testing.T) {
	// Given: the index knows a paragraph the corpus lacks
	idx := &fakeIndex{hits: []store.VectorResult{{ID: "1"}, {ID: "ghost"}}}
	r := NewHybridRanker(&fakeEmbedder{vec: []float32{1}}, idx, &countingBuilder{}, DefaultFusionConfig())

	// When
	_, err := r.Rank(context.Background(), "cat", catDogCorpus(), 5)

	// Then
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "ghost")
}

func TestHybridRanker_DimensionMismatchIsSchemaMismatch(t *testing.T) {
	dm := store.ErrDimensionMismatch{Expected: 384, Got: 3}
	idx := &fakeIndex{err: dm}
	r := NewHybridRanker(&fakeEmbedder{vec: []float32{1, 2, 3}}, idx, &countingBuilder{}, DefaultFusionConfig())

	_, err := r.Rank(context.Background(), "cat", catDogCorpus(), 5)

	require.ErrorIs(t, err, ErrSchemaMismatch)
	var got store.ErrDimensionMismatch
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 384, got.Expected)
}

func TestHybridRanker_ReusesScorerForSameCorpus(t *testing.T) {
	r, _, _, b := newCatDogRanker(DefaultFusionConfig())
	ctx := context.Background()

	_, err := r.Rank(ctx, "cat", catDogCorpus(), 5)
	require.NoError(t, err)
	_, err = r.Rank(ctx, "dog", catDogCorpus(), 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.builds.Load())

	// A changed corpus rebuilds.
	changed := catDogCorpus()
	changed[1].Content = "the dog barked"
	_, err = r.Rank(ctx, "dog", changed, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.builds.Load())

	require.NoError(t, r.Close())
	_, err = r.Rank(ctx, "dog", changed, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), b.builds.Load())
}

// gatedScorer blocks Score until release is closed when gated, and fails like
// a closed bleve or sqlite index once Close has run.
type gatedScorer struct {
	entered chan struct{}
	release chan struct{}
	closed  atomic.Bool
}

func (g *gatedScorer) Score(context.Context, string) (map[string]float64, error) {
	if g.entered != nil {
		close(g.entered)
		<-g.release
	}
	if g.closed.Load() {
		return nil, errors.New("index is closed")
	}
	return map[string]float64{"1": 1}, nil
}

func (g *gatedScorer) Len() int     { return 2 }
func (g *gatedScorer) Close() error { g.closed.Store(true); return nil }

func TestHybridRanker_ReplacedScorerOutlivesInFlightScore(t *testing.T) {
	// Given: a ranker whose first scorer is mid-Score
	first := &gatedScorer{entered: make(chan struct{}), release: make(chan struct{})}
	second := &gatedScorer{}
	var builds atomic.Int32
	builder := lexical.BuilderFunc(func(context.Context, []lexical.Document) (lexical.Scorer, error) {
		if builds.Add(1) == 1 {
			return first, nil
		}
		return second, nil
	})
	r := NewHybridRanker(&fakeEmbedder{vec: []float32{1, 0, 0}}, &fakeIndex{hits: catDogHits()}, builder, DefaultFusionConfig())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := r.Rank(ctx, "cat", catDogCorpus(), 5)
		done <- err
	}()
	<-first.entered

	// When: a call with a changed corpus replaces the scorer
	changed := catDogCorpus()
	changed[1].Content = "the dog barked"
	_, err := r.Rank(ctx, "dog", changed, 5)

	// Then: the old scorer stays open until the in-flight call finishes
	require.NoError(t, err)
	assert.False(t, first.closed.Load())

	close(first.release)
	require.NoError(t, <-done)
	assert.True(t, first.closed.Load())
	assert.False(t, second.closed.Load())

	require.NoError(t, r.Close())
	assert.True(t, second.closed.Load())
}

func TestHybridRanker_DoesNotMutateCorpus(t *testing.T) {
	r, _, _, _ := newCatDogRanker(DefaultFusionConfig())
	corpus := catDogCorpus()

	_, err := r.Rank(context.Background(), "dog", corpus, 5)

	require.NoError(t, err)
	assert.Equal(t, catDogCorpus(), corpus)
}

func TestHybridRanker_WithRealBackends(t *testing.T) {
	for _, backend := range []string{"okapi", "bleve", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			b, err := lexical.NewBuilder(backend, lexical.DefaultConfig(), "")
			require.NoError(t, err)
			r := NewHybridRanker(&fakeEmbedder{vec: []float32{1}}, &fakeIndex{hits: catDogHits()}, b, DefaultFusionConfig())
			defer func() { _ = r.Close() }()

			results, err := r.Rank(context.Background(), "dog", catDogCorpus(), 5)

			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "2", results[0].ID)
			assert.Greater(t, results[0].Lexical, 0.0)
		})
	}
}
