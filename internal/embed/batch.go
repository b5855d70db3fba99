package embed

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after each completed batch with running totals.
type ProgressFunc func(done, total int)

// EmbedAll embeds texts in batches of batchSize, running up to workers
// batches at once. The result is in input order. The first failing batch
// cancels the rest and its error is returned.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize, workers int, progress ProgressFunc) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([][]float32, len(texts))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			n := done.Add(int64(end - start))
			if progress != nil {
				progress(int(n), len(texts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
