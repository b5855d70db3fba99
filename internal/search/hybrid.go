package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

// HybridRanker combines vector neighbours and BM25 scores with RRF.
//
// The lexical scorer is built from the corpus on first use and reused while
// later calls pass an identical corpus. A replaced scorer stays open until
// every in-flight Score on it has returned.
type HybridRanker struct {
	embedder QueryEmbedder
	index    NeighborSearcher
	builder  lexical.Builder
	fusion   FusionConfig

	mu          sync.Mutex
	scorer      *sharedScorer
	fingerprint string
}

// sharedScorer counts the Rank calls using a scorer. Guarded by HybridRanker.mu.
type sharedScorer struct {
	lexical.Scorer
	refs    int
	retired bool
}

// NewHybridRanker creates a ranker.
func NewHybridRanker(embedder QueryEmbedder, index NeighborSearcher, builder lexical.Builder, fusion FusionConfig) *HybridRanker {
	return &HybridRanker{
		embedder: embedder,
		index:    index,
		builder:  builder,
		fusion:   fusion,
	}
}

// Rank returns up to limit fused results for query over corpus. A limit of 0
// means DefaultLimit.
//
// Errors from the embedder, the vector index and the lexical scorer are
// returned unmodified, except a dimension mismatch, which is reported as
// ErrSchemaMismatch. No retries are made and no partial result is returned.
func (r *HybridRanker) Rank(ctx context.Context, query string, corpus []lexical.Document, limit int) ([]Result, error) {
	query, limit, err := checkInputs(query, limit)
	if err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	start := time.Now()

	hits, err := neighbours(ctx, r.embedder, r.index, query, limit)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(corpus))
	for _, d := range corpus {
		ids[d.ID] = struct{}{}
	}
	var missing []string
	for _, h := range hits {
		if _, ok := ids[h.ID]; !ok {
			missing = append(missing, h.ID)
		}
	}
	if len(missing) > 0 {
		return nil, wgerrors.New(wgerrors.ErrCodeSchemaMismatch,
			fmt.Sprintf("vector index returned %d id(s) missing from the paragraph store (first: %s)", len(missing), missing[0]), nil).
			WithDetail("missing", fmt.Sprint(len(missing))).
			WithSuggestion("Run 'wikigraph verify', then 'wikigraph cleanup' and 'wikigraph setup'")
	}

	scorer, err := r.acquireScorer(ctx, corpus)
	if err != nil {
		return nil, err
	}
	lexScores, err := scorer.Score(ctx, query)
	r.releaseScorer(scorer)
	if err != nil {
		return nil, err
	}

	results := Fuse(hits, corpus, lexScores, r.fusion)
	if len(results) > limit {
		results = results[:limit]
	}

	slog.Debug("hybrid rank",
		slog.String("component", "search"),
		slog.Int("neighbours", len(hits)),
		slog.Int("lexical_matches", len(lexScores)),
		slog.Int("corpus", len(corpus)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}

// acquireScorer returns the cached scorer when corpus is unchanged, otherwise
// builds a new one and retires the old. The caller must releaseScorer.
func (r *HybridRanker) acquireScorer(ctx context.Context, corpus []lexical.Document) (*sharedScorer, error) {
	fp := lexical.Fingerprint(corpus)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scorer != nil && r.fingerprint == fp {
		r.scorer.refs++
		return r.scorer, nil
	}

	built, err := r.builder.Build(ctx, corpus)
	if err != nil {
		return nil, err
	}
	r.retireLocked()
	r.scorer = &sharedScorer{Scorer: built, refs: 1}
	r.fingerprint = fp
	return r.scorer, nil
}

func (r *HybridRanker) releaseScorer(s *sharedScorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.retired && s.refs == 0 {
		_ = s.Close()
	}
}

// retireLocked detaches the cached scorer, closing it now if idle. The last
// releaseScorer closes a busy one.
func (r *HybridRanker) retireLocked() error {
	old := r.scorer
	r.scorer, r.fingerprint = nil, ""
	if old == nil {
		return nil
	}
	old.retired = true
	if old.refs == 0 {
		return old.Close()
	}
	return nil
}

// Close releases the cached lexical scorer.
func (r *HybridRanker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retireLocked()
}

// checkInputs trims the query and resolves the limit. It runs before any
// external call.
func checkInputs(query string, limit int) (string, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", 0, ErrEmptyQuery
	}
	if limit < 0 {
		return "", 0, ErrInvalidLimit
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	return query, limit, nil
}

// neighbours embeds query and asks the index for limit neighbours.
func neighbours(ctx context.Context, e QueryEmbedder, index NeighborSearcher, query string, limit int) ([]store.VectorResult, error) {
	vec, err := e.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := index.Search(ctx, vec, limit)
	if err != nil {
		var dm store.ErrDimensionMismatch
		if errors.As(err, &dm) {
			return nil, wgerrors.New(wgerrors.ErrCodeSchemaMismatch,
				fmt.Sprintf("embedder %s produces %d dimensions but the vector index holds %d", e.ModelName(), dm.Got, dm.Expected), err).
				WithSuggestion("Use the embedding model the index was built with, or rebuild with 'wikigraph cleanup' and 'wikigraph setup'")
		}
		return nil, err
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
