package lexical

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catDogCorpus() []Document {
	return []Document{
		{ID: "1", Content: "the cat sat"},
		{ID: "2", Content: "the dog ran"},
	}
}

func TestOkapi_ScoresOnlyMatchingDocuments(t *testing.T) {
	// Given: the two-paragraph corpus
	m := BuildOkapi(catDogCorpus(), DefaultConfig())

	// When: scoring "cat"
	scores, err := m.Score(context.Background(), "cat")

	// Then: only paragraph 1 matches, with a positive score
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Greater(t, scores["1"], 0.0)
}

func TestOkapi_MatchesHandComputedScore(t *testing.T) {
	// Given: N=2, "cat" in one document of length 3, avgdl 3
	cfg := DefaultConfig()
	m := BuildOkapi(catDogCorpus(), cfg)

	scores, err := m.Score(context.Background(), "cat")
	require.NoError(t, err)

	// idf = ln((2-1+0.5)/(1+0.5) + 1) = ln 2; tf = 1; |d|/avgdl = 1
	want := math.Log(2) * 1 * (cfg.K1 + 1) / (1 + cfg.K1)
	assert.InDelta(t, want, scores["1"], 1e-9)
}

func TestOkapi_CommonTermsScoreNonNegative(t *testing.T) {
	// "the" appears in every document; the idf must not go negative.
	m := BuildOkapi(catDogCorpus(), DefaultConfig())

	scores, err := m.Score(context.Background(), "the")

	require.NoError(t, err)
	assert.Len(t, scores, 2)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
	}
}

func TestOkapi_RepeatedQueryTermsAccumulate(t *testing.T) {
	m := BuildOkapi(catDogCorpus(), DefaultConfig())

	once, _ := m.Score(context.Background(), "cat")
	twice, _ := m.Score(context.Background(), "cat cat")

	assert.InDelta(t, 2*once["1"], twice["1"], 1e-9)
}

func TestOkapi_ShorterDocumentWinsAtEqualTF(t *testing.T) {
	m := BuildOkapi([]Document{
		{ID: "short", Content: "mongol empire"},
		{ID: "long", Content: "mongol horsemen crossed the steppe toward distant cities"},
	}, DefaultConfig())

	scores, err := m.Score(context.Background(), "mongol")

	require.NoError(t, err)
	assert.Greater(t, scores["short"], scores["long"])
}

func TestOkapi_EmptyInputs(t *testing.T) {
	m := BuildOkapi(nil, DefaultConfig())
	scores, err := m.Score(context.Background(), "cat")
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Equal(t, 0, m.Len())

	m = BuildOkapi(catDogCorpus(), DefaultConfig())
	scores, err = m.Score(context.Background(), "!!")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestOkapi_CancelledContext(t *testing.T) {
	m := BuildOkapi(catDogCorpus(), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Score(ctx, "cat")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(catDogCorpus())

	assert.Equal(t, a, Fingerprint(catDogCorpus()))
	assert.NotEqual(t, a, Fingerprint(catDogCorpus()[:1]))

	changed := catDogCorpus()
	changed[1].Content = "the dog sat"
	assert.NotEqual(t, a, Fingerprint(changed))
}
