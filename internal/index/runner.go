// Package index builds and removes the wikigraph indexes: the Paragraph
// Store, the HNSW Vector Index and the persisted BM25 model.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Aman-CERP/wikigraph/internal/chunk"
	"github.com/Aman-CERP/wikigraph/internal/config"
	"github.com/Aman-CERP/wikigraph/internal/embed"
	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/graph"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/search"
	"github.com/Aman-CERP/wikigraph/internal/store"
	"github.com/Aman-CERP/wikigraph/internal/wiki"
)

// Stage names a setup step for progress reporting.
type Stage string

const (
	StageChunk   Stage = "chunk"
	StageStore   Stage = "store"
	StageEmbed   Stage = "embed"
	StageVector  Stage = "vector"
	StageLexical Stage = "lexical"
)

// ProgressEvent is a setup progress update.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int
}

// ProgressFunc receives progress updates. It may be called from several
// goroutines during the embed stage.
type ProgressFunc func(ProgressEvent)

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Config is the loaded configuration (required).
	Config *config.Config

	// Paragraphs is the Paragraph Store (required).
	Paragraphs graph.Store

	// Embedder embeds paragraph content (required for Setup).
	Embedder embed.Embedder

	// Progress is optional.
	Progress ProgressFunc
}

// Runner executes setup and cleanup.
type Runner struct {
	config     *config.Config
	paragraphs graph.Store
	embedder   embed.Embedder
	progress   ProgressFunc
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Paragraphs == nil {
		return nil, fmt.Errorf("paragraph store is required")
	}
	progress := deps.Progress
	if progress == nil {
		progress = func(ProgressEvent) {}
	}
	return &Runner{
		config:     deps.Config,
		paragraphs: deps.Paragraphs,
		embedder:   deps.Embedder,
		progress:   progress,
	}, nil
}

// StageTimings tracks duration for each setup stage.
type StageTimings struct {
	Chunk   time.Duration
	Store   time.Duration
	Embed   time.Duration
	Vector  time.Duration
	Lexical time.Duration
}

// SetupOptions configures a setup run.
type SetupOptions struct {
	// DatasetPath is the scraped JSON dataset (defaults to the configured one).
	DatasetPath string
}

// SetupResult contains the outcome of a setup run.
type SetupResult struct {
	Pages      int
	Paragraphs int
	Stored     int
	Vectors    int
	Model      string
	Dimensions int
	Duration   time.Duration
	Stages     StageTimings
}

// Setup ingests the dataset. Paragraphs are merged into the Paragraph Store,
// then the Vector Index and the BM25 model are rebuilt from the store's full
// contents so all three agree on the paragraph set.
func (r *Runner) Setup(ctx context.Context, opts SetupOptions) (*SetupResult, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("embedder is required for setup")
	}
	start := time.Now()
	res := &SetupResult{}

	lock := store.NewFileLock(r.config.LockPath())
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	path := opts.DatasetPath
	if path == "" {
		path = r.config.DatasetPath()
	}
	pages, err := wiki.LoadPages(path)
	if err != nil {
		return nil, err
	}
	res.Pages = len(pages)

	t := time.Now()
	chunker := chunk.NewParagraphChunker(chunk.ParagraphChunkerOptions{SkipHeadings: r.config.Ingest.SkipHeadings})
	var paras []chunk.Paragraph
	for i, p := range pages {
		paras = append(paras, chunker.Chunk(p.URL, p.Title, p.Content)...)
		r.progress(ProgressEvent{Stage: StageChunk, Current: i + 1, Total: len(pages)})
	}
	res.Paragraphs = len(paras)
	res.Stages.Chunk = time.Since(t)
	if len(paras) == 0 {
		return nil, wgerrors.New(wgerrors.ErrCodeCorpusEmpty,
			fmt.Sprintf("dataset %s contains no paragraphs", path), nil).
			WithSuggestion("Run 'wikigraph scrape' to fetch articles")
	}

	t = time.Now()
	if err := r.paragraphs.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	stored, err := r.paragraphs.SaveParagraphs(ctx, paras, r.config.Ingest.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("saved %d of %d paragraphs: %w", stored, len(paras), err)
	}
	res.Stored = stored
	r.progress(ProgressEvent{Stage: StageStore, Current: stored, Total: len(paras)})
	res.Stages.Store = time.Since(t)

	all, err := r.paragraphs.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	t = time.Now()
	ids := make([]string, len(all))
	texts := make([]string, len(all))
	for i, p := range all {
		ids[i] = p.ID
		texts[i] = p.Content
	}
	vecs, err := embed.EmbedAll(ctx, r.embedder, texts,
		r.config.Embeddings.BatchSize, r.config.Embeddings.Workers,
		func(done, total int) {
			r.progress(ProgressEvent{Stage: StageEmbed, Current: done, Total: total})
		})
	if err != nil {
		return nil, err
	}
	res.Stages.Embed = time.Since(t)

	t = time.Now()
	vcfg := store.VectorIndexConfig{
		Dimensions: r.embedder.Dimensions(),
		Metric:     r.config.Vector.Metric,
		M:          r.config.Vector.M,
		EfSearch:   r.config.Vector.EfSearch,
		Model:      r.embedder.ModelName(),
	}
	idx, err := store.NewHNSWStore(vcfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = idx.Close() }()
	if err := idx.Add(ctx, ids, vecs); err != nil {
		return nil, err
	}
	if err := idx.Save(r.config.VectorIndexPath()); err != nil {
		return nil, err
	}
	res.Vectors = idx.Count()
	res.Model = vcfg.Model
	res.Dimensions = vcfg.Dimensions
	r.progress(ProgressEvent{Stage: StageVector, Current: res.Vectors, Total: len(all)})
	res.Stages.Vector = time.Since(t)

	t = time.Now()
	model := lexical.BuildOkapi(search.Corpus(all), lexical.ConfigFrom(r.config.Lexical))
	if err := lexical.SaveOkapi(model, r.config.LexicalModelPath()); err != nil {
		return nil, err
	}
	r.progress(ProgressEvent{Stage: StageLexical, Current: model.Len(), Total: len(all)})
	res.Stages.Lexical = time.Since(t)

	res.Duration = time.Since(start)
	slog.Info("setup complete",
		slog.String("component", "index"),
		slog.Int("pages", res.Pages),
		slog.Int("paragraphs", res.Paragraphs),
		slog.Int("vectors", res.Vectors),
		slog.String("model", res.Model),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// CleanupResult contains the outcome of a cleanup run.
type CleanupResult struct {
	// NodesDeleted counts Page and Paragraph nodes removed.
	NodesDeleted int

	// FilesRemoved lists index files that existed and were removed.
	FilesRemoved []string
}

// Cleanup deletes every Page and Paragraph node and removes the vector index
// and lexical model files. Missing files are not an error.
func (r *Runner) Cleanup(ctx context.Context) (*CleanupResult, error) {
	lock := store.NewFileLock(r.config.LockPath())
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	deleted, err := r.paragraphs.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	res := &CleanupResult{NodesDeleted: deleted}

	vectorPath := r.config.VectorIndexPath()
	if exists(vectorPath) {
		res.FilesRemoved = append(res.FilesRemoved, vectorPath)
	}
	if err := store.Remove(vectorPath); err != nil {
		return res, err
	}

	modelPath := r.config.LexicalModelPath()
	if err := os.Remove(modelPath); err == nil {
		res.FilesRemoved = append(res.FilesRemoved, modelPath)
	} else if !os.IsNotExist(err) {
		return res, fmt.Errorf("remove lexical model: %w", err)
	}

	slog.Info("cleanup complete",
		slog.String("component", "index"),
		slog.Int("nodes_deleted", deleted),
		slog.Int("files_removed", len(res.FilesRemoved)))
	return res, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
